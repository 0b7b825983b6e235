package models

import "time"

// PlaylistKind identifies which source protocol a playlist uses
type PlaylistKind string

const (
	PlaylistKindFile   PlaylistKind = "playlist-file"
	PlaylistKindPortal PlaylistKind = "portal-api"
	PlaylistKindAddon  PlaylistKind = "addon-manifest"
)

// Playlist describes one configured catalog source. Kind-specific
// connection fields: URL for playlist files and addon manifests,
// ServerURL plus credentials for portal APIs.
type Playlist struct {
	ID   string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name string       `gorm:"type:varchar(255);not null" json:"name"`
	Kind PlaylistKind `gorm:"type:varchar(20);not null" json:"kind"`

	URL       string `gorm:"type:text" json:"url,omitempty"`
	ServerURL string `gorm:"type:text" json:"server_url,omitempty"`
	Username  string `gorm:"type:varchar(255)" json:"username,omitempty"`
	Password  string `gorm:"type:varchar(255)" json:"password,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for Playlist
func (Playlist) TableName() string {
	return "playlists"
}

// AppState is a single key-value row of small structured state, such
// as the last-loaded playlist pointer.
type AppState struct {
	Key       string    `gorm:"primaryKey;type:varchar(64)" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for AppState
func (AppState) TableName() string {
	return "app_state"
}

// StateKeyLastLoadedPlaylist is the app_state key holding the id of
// the playlist that was loaded most recently.
const StateKeyLastLoadedPlaylist = "last_loaded_playlist"
