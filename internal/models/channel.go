package models

import (
	"github.com/google/uuid"
)

// ContentKind represents the kind of media a channel points at
type ContentKind string

const (
	ContentKindLive   ContentKind = "live"
	ContentKindMovie  ContentKind = "movie"
	ContentKindSeries ContentKind = "series"
)

// Channel is the canonical normalized record produced by every source
// parser. It also represents movies and series root items; series carry
// their seasons inline.
//
// Identity is a surrogate key minted fresh on every parse. It is never
// used as a persistence join key; matching across re-fetches goes
// through StableKey.
type Channel struct {
	Identity         string      `json:"identity"`
	Name             string      `json:"name"`
	PlaybackURL      string      `json:"playback_url"`
	LogoURL          string      `json:"logo_url,omitempty"`
	Group            string      `json:"group,omitempty"`
	SourceChannelRef string      `json:"source_channel_ref,omitempty"`
	ContentKind      ContentKind `json:"content_kind"`

	// User-owned state, carried forward across re-fetches by the
	// reconciliation engine.
	CategoryIDs []string `json:"category_ids,omitempty"`
	IsFavorite  bool     `json:"is_favorite,omitempty"`

	// Reassigned on every fetch to the playlist that produced this
	// record in the current operation.
	OriginPlaylistID string `json:"origin_playlist_id"`

	// VoD-only fields
	Duration        string   `json:"duration,omitempty"`
	Rating          string   `json:"rating,omitempty"`
	ReleaseDate     string   `json:"release_date,omitempty"`
	Plot            string   `json:"plot,omitempty"`
	Director        string   `json:"director,omitempty"`
	CastList        []string `json:"cast_list,omitempty"`
	Genres          []string `json:"genres,omitempty"`
	ContainerFormat string   `json:"container_format,omitempty"`

	// Series-only
	Seasons []Season `json:"seasons,omitempty"`
}

// Season holds an ordered list of episodes for a series channel
type Season struct {
	Number   int       `json:"number"`
	Name     string    `json:"name,omitempty"`
	Episodes []Episode `json:"episodes"`
}

// Episode represents a single episode within a season
type Episode struct {
	EpisodeNumber int    `json:"episode_number"`
	Title         string `json:"title"`
	PlaybackURL   string `json:"playback_url,omitempty"`
	Synopsis      string `json:"synopsis,omitempty"`
}

// NewIdentity mints a fresh surrogate key for a parsed channel
func NewIdentity() string {
	return uuid.New().String()
}

// HasCategory reports whether the channel carries the given category id
func (c *Channel) HasCategory(categoryID string) bool {
	for _, id := range c.CategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}

// AddCategory inserts a category id, keeping CategoryIDs duplicate-free
func (c *Channel) AddCategory(categoryID string) {
	if categoryID == "" || c.HasCategory(categoryID) {
		return
	}
	c.CategoryIDs = append(c.CategoryIDs, categoryID)
}

// RemoveCategory drops a category id if present
func (c *Channel) RemoveCategory(categoryID string) {
	for i, id := range c.CategoryIDs {
		if id == categoryID {
			c.CategoryIDs = append(c.CategoryIDs[:i], c.CategoryIDs[i+1:]...)
			return
		}
	}
}
