package domain

import "time"

// SessionModel is a Session with its room, speakers and category items
// resolved against one snapshot.
type SessionModel struct {
	ID          string
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
	Room        Room
	Speakers    []Speaker
	Categories  []CategoryItem
}

// Index is a lookup table over the reference data of a snapshot.
type Index struct {
	rooms    map[int]Room
	speakers map[string]Speaker
	items    map[int]CategoryItem
}

func NewIndex(data AllData) Index {
	idx := Index{
		rooms:    make(map[int]Room, len(data.Rooms)),
		speakers: make(map[string]Speaker, len(data.Speakers)),
		items:    map[int]CategoryItem{},
	}
	for _, r := range data.Rooms {
		idx.rooms[r.ID] = r
	}
	for _, s := range data.Speakers {
		idx.speakers[s.ID] = s
	}
	for _, c := range data.Categories {
		for _, item := range c.Items {
			idx.items[item.ID] = item
		}
	}
	return idx
}

// Resolve returns false when any reference of the session is missing.
func (idx Index) Resolve(s Session) (SessionModel, bool) {
	if s.ID == "" {
		return SessionModel{}, false
	}
	room, ok := idx.rooms[s.RoomID]
	if !ok {
		return SessionModel{}, false
	}
	speakers := make([]Speaker, 0, len(s.SpeakerIDs))
	for _, id := range s.SpeakerIDs {
		speaker, ok := idx.speakers[id]
		if !ok {
			return SessionModel{}, false
		}
		speakers = append(speakers, speaker)
	}
	categories := make([]CategoryItem, 0, len(s.CategoryItems))
	for _, id := range s.CategoryItems {
		item, ok := idx.items[id]
		if !ok {
			return SessionModel{}, false
		}
		categories = append(categories, item)
	}
	return SessionModel{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		StartsAt:    s.StartsAt,
		EndsAt:      s.EndsAt,
		Room:        room,
		Speakers:    speakers,
		Categories:  categories,
	}, true
}

// ResolveSessions keeps snapshot order and drops unresolvable sessions.
func ResolveSessions(data AllData) []SessionModel {
	idx := NewIndex(data)
	out := make([]SessionModel, 0, len(data.Sessions))
	for _, s := range data.Sessions {
		if model, ok := idx.Resolve(s); ok {
			out = append(out, model)
		}
	}
	return out
}

// ResolveSession looks up one session by id.
func ResolveSession(data AllData, id string) (SessionModel, bool) {
	for _, s := range data.Sessions {
		if s.ID == id {
			return NewIndex(data).Resolve(s)
		}
	}
	return SessionModel{}, false
}

func FilterFavorites(sessions []SessionModel, favorites map[string]struct{}) []SessionModel {
	out := make([]SessionModel, 0, len(favorites))
	for _, s := range sessions {
		if _, ok := favorites[s.ID]; ok {
			out = append(out, s)
		}
	}
	return out
}
