package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrEmptySnapshot = errors.New("snapshot is empty")

// AllData is the full dataset returned by the server. It is replaced
// wholesale on refresh and never mutated in place.
type AllData struct {
	Sessions   []Session  `json:"sessions"`
	Rooms      []Room     `json:"rooms"`
	Speakers   []Speaker  `json:"speakers"`
	Categories []Category `json:"categories"`
	Favorites  []Favorite `json:"favorites"`
	Votes      []Vote     `json:"votes"`
}

type Session struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"descriptionText,omitempty"`
	StartsAt      time.Time `json:"startsAt"`
	EndsAt        time.Time `json:"endsAt"`
	RoomID        int       `json:"roomId"`
	SpeakerIDs    []string  `json:"speakers"`
	CategoryItems []int     `json:"categoryItems"`
}

type Speaker struct {
	ID             string `json:"id"`
	FullName       string `json:"fullName"`
	Bio            string `json:"bio,omitempty"`
	TagLine        string `json:"tagLine,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type Room struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Sort int    `json:"sort"`
}

type Category struct {
	ID    int            `json:"id"`
	Title string         `json:"title"`
	Items []CategoryItem `json:"items"`
}

type CategoryItem struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Favorite struct {
	SessionID string `json:"sessionId"`
}

type Vote struct {
	SessionID string `json:"sessionId"`
	Rating    *int   `json:"rating,omitempty"`
}

func DecodeAllData(raw []byte) (AllData, error) {
	var data *AllData
	if err := json.Unmarshal(raw, &data); err != nil {
		return AllData{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if data == nil {
		return AllData{}, ErrEmptySnapshot
	}
	return *data, nil
}

func EncodeAllData(data AllData) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return raw, nil
}

// FavoriteIDs returns the server-side favorite set.
func (d AllData) FavoriteIDs() map[string]struct{} {
	out := make(map[string]struct{}, len(d.Favorites))
	for _, f := range d.Favorites {
		if f.SessionID == "" {
			continue
		}
		out[f.SessionID] = struct{}{}
	}
	return out
}

// RatingMap returns the server-side votes. Votes without a session id or with
// a code outside the rating scale are skipped.
func (d AllData) RatingMap() map[string]Rating {
	out := make(map[string]Rating, len(d.Votes))
	for _, v := range d.Votes {
		if v.SessionID == "" || v.Rating == nil {
			continue
		}
		rating, err := ParseRating(*v.Rating)
		if err != nil {
			continue
		}
		out[v.SessionID] = rating
	}
	return out
}
