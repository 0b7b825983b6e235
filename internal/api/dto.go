package api

import "github.com/ovailles/tvharbor/internal/models"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreatePlaylistRequest represents a playlist creation request. The
// connection fields required depend on the kind: URL for playlist
// files and addon manifests, server URL plus credentials for portals.
type CreatePlaylistRequest struct {
	Name      string              `json:"name" binding:"required"`
	Kind      models.PlaylistKind `json:"kind" binding:"required"`
	URL       string              `json:"url,omitempty"`
	ServerURL string              `json:"server_url,omitempty"`
	Username  string              `json:"username,omitempty"`
	Password  string              `json:"password,omitempty"`
}

// UpdatePlaylistRequest represents a playlist update request
type UpdatePlaylistRequest struct {
	Name      *string `json:"name,omitempty"`
	URL       *string `json:"url,omitempty"`
	ServerURL *string `json:"server_url,omitempty"`
	Username  *string `json:"username,omitempty"`
	Password  *string `json:"password,omitempty"`
}

// PlaylistResponse represents a playlist without its credentials
type PlaylistResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Kind      models.PlaylistKind `json:"kind"`
	URL       string              `json:"url,omitempty"`
	ServerURL string              `json:"server_url,omitempty"`
	Username  string              `json:"username,omitempty"`
	CreatedAt string              `json:"created_at"`
	UpdatedAt string              `json:"updated_at"`
}

// ChannelListResponse wraps a channel listing with its total count
type ChannelListResponse struct {
	Data  []models.Channel `json:"data"`
	Total int              `json:"total"`
}

// FavoriteRequest toggles the favorite flag
type FavoriteRequest struct {
	Favorite bool `json:"favorite"`
}

// SaveCategoriesRequest replaces the full category list; order follows
// list position.
type SaveCategoriesRequest struct {
	Categories []CategoryRequest `json:"categories" binding:"required"`
}

// CategoryRequest is one category in a save request. A missing id
// means a new category.
type CategoryRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name" binding:"required"`
}
