package service

import (
	"maps"

	"confsched/internal/modules/schedule/domain"
	"confsched/internal/platform/observable"
)

// Projections are the push-updated views over engine state. Published slices
// and maps are fresh copies and must be treated as read-only by consumers.
type Projections struct {
	sessions   *observable.Cell[[]domain.SessionModel]
	favorites  *observable.Cell[[]domain.SessionModel]
	ratings    *observable.Cell[map[string]domain.Rating]
	isUpdating *observable.Cell[bool]
}

func newProjections() *Projections {
	return &Projections{
		sessions:   observable.New[[]domain.SessionModel](),
		favorites:  observable.New[[]domain.SessionModel](),
		ratings:    observable.New[map[string]domain.Rating](),
		isUpdating: observable.New[bool](),
	}
}

func (p *Projections) Sessions() observable.Value[[]domain.SessionModel]  { return p.sessions }
func (p *Projections) Favorites() observable.Value[[]domain.SessionModel] { return p.favorites }
func (p *Projections) Ratings() observable.Value[map[string]domain.Rating] { return p.ratings }
func (p *Projections) IsUpdating() observable.Value[bool]                  { return p.isUpdating }

// publishSnapshot recomputes sessions and, from them, favorites.
func (p *Projections) publishSnapshot(data domain.AllData, favorites map[string]struct{}) {
	sessions := domain.ResolveSessions(data)
	p.sessions.Set(sessions)
	p.favorites.Set(domain.FilterFavorites(sessions, favorites))
}

// publishFavorites is a no-op until sessions have been published once.
func (p *Projections) publishFavorites(favorites map[string]struct{}) {
	sessions, ok := p.sessions.Get()
	if !ok {
		return
	}
	p.favorites.Set(domain.FilterFavorites(sessions, favorites))
}

func (p *Projections) publishRatings(ratings map[string]domain.Rating) {
	p.ratings.Set(maps.Clone(ratings))
}

func (p *Projections) publishUpdating(updating bool) {
	p.isUpdating.Set(updating)
}
