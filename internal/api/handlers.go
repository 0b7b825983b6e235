package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ovailles/tvharbor/internal/errors"
	"github.com/ovailles/tvharbor/internal/models"
)

func (s *Server) healthCheck(c *gin.Context) {
	if err := s.state.HealthCheck(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// --- Playlists ---

func (s *Server) listPlaylists(c *gin.Context) {
	playlists, err := s.state.ListPlaylists()
	if err != nil {
		abortWithError(c, err)
		return
	}

	out := make([]PlaylistResponse, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, toPlaylistResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (s *Server) getPlaylist(c *gin.Context) {
	playlist, err := s.state.GetPlaylist(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPlaylistResponse(*playlist))
}

func (s *Server) createPlaylist(c *gin.Context) {
	var req CreatePlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}
	if err := validatePlaylistRequest(req); err != nil {
		abortWithError(c, err)
		return
	}

	playlist := &models.Playlist{
		ID:        models.NewIdentity(),
		Name:      req.Name,
		Kind:      req.Kind,
		URL:       req.URL,
		ServerURL: req.ServerURL,
		Username:  req.Username,
		Password:  req.Password,
	}
	if err := s.state.SavePlaylist(playlist); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPlaylistResponse(*playlist))
}

func (s *Server) updatePlaylist(c *gin.Context) {
	playlist, err := s.state.GetPlaylist(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	var req UpdatePlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	if req.Name != nil {
		playlist.Name = *req.Name
	}
	if req.URL != nil {
		playlist.URL = *req.URL
	}
	if req.ServerURL != nil {
		playlist.ServerURL = *req.ServerURL
	}
	if req.Username != nil {
		playlist.Username = *req.Username
	}
	if req.Password != nil {
		playlist.Password = *req.Password
	}

	if err := s.state.SavePlaylist(playlist); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPlaylistResponse(*playlist))
}

func (s *Server) deletePlaylist(c *gin.Context) {
	if err := s.state.DeletePlaylist(c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) loadPlaylist(c *gin.Context) {
	stats, err := s.ingest.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// --- Channels ---

func (s *Server) listChannels(c *gin.Context) {
	kind := c.Query("kind")
	group := c.Query("group")
	category := c.Query("category")
	favoritesOnly := c.Query("favorite") == "true"

	channels := s.ingest.Channels()
	filtered := make([]models.Channel, 0, len(channels))
	for _, ch := range channels {
		if kind != "" && string(ch.ContentKind) != kind {
			continue
		}
		if group != "" && !strings.EqualFold(ch.Group, group) {
			continue
		}
		if favoritesOnly && !ch.IsFavorite {
			continue
		}
		if category != "" && !ch.HasCategory(category) {
			continue
		}
		filtered = append(filtered, ch)
	}

	c.JSON(http.StatusOK, ChannelListResponse{Data: filtered, Total: len(filtered)})
}

func (s *Server) channelSeasons(c *gin.Context) {
	seasons, err := s.ingest.SeriesInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seasons": seasons})
}

func (s *Server) setFavorite(c *gin.Context) {
	var req FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}
	if err := s.ingest.SetFavorite(c.Param("id"), req.Favorite); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorite": req.Favorite})
}

// --- Categories ---

func (s *Server) listCategories(c *gin.Context) {
	categories, err := s.state.ListCategories()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

func (s *Server) saveCategories(c *gin.Context) {
	var req SaveCategoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	categories := make([]models.Category, 0, len(req.Categories))
	for i, cat := range req.Categories {
		id := cat.ID
		if id == "" {
			id = models.NewIdentity()
		}
		categories = append(categories, models.Category{
			ID:    id,
			Name:  cat.Name,
			Order: i,
		})
	}

	if err := s.state.SaveCategories(categories); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

func (s *Server) deleteCategory(c *gin.Context) {
	if err := s.state.DeleteCategory(c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) assignCategory(c *gin.Context) {
	if err := s.ingest.AssignCategory(c.Param("channelId"), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) unassignCategory(c *gin.Context) {
	if err := s.ingest.UnassignCategory(c.Param("channelId"), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- helpers ---

func toPlaylistResponse(p models.Playlist) PlaylistResponse {
	return PlaylistResponse{
		ID:        p.ID,
		Name:      p.Name,
		Kind:      p.Kind,
		URL:       p.URL,
		ServerURL: p.ServerURL,
		Username:  p.Username,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

func validatePlaylistRequest(req CreatePlaylistRequest) error {
	switch req.Kind {
	case models.PlaylistKindFile, models.PlaylistKindAddon:
		if req.URL == "" {
			return apperrors.New(apperrors.CodeValidation, "url is required for this playlist kind")
		}
	case models.PlaylistKindPortal:
		if req.ServerURL == "" || req.Username == "" || req.Password == "" {
			return apperrors.New(apperrors.CodeValidation, "server_url, username and password are required for portal playlists")
		}
	default:
		return apperrors.New(apperrors.CodeValidation, "kind must be one of: playlist-file, portal-api, addon-manifest")
	}
	return nil
}

// abortWithError maps an application error code to an HTTP status
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.GetErrorCode(err) {
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeValidation, apperrors.CodeInvalidURL, apperrors.CodeInvalidEndpoint, apperrors.CodeFormat:
		status = http.StatusBadRequest
	case apperrors.CodeTransport, apperrors.CodeServer:
		status = http.StatusBadGateway
	case apperrors.CodeDecode, apperrors.CodeNoCatalogs, apperrors.CodeNoStreams:
		status = http.StatusUnprocessableEntity
	}

	c.JSON(status, ErrorResponse{
		Error:   string(apperrors.GetErrorCode(err)),
		Message: err.Error(),
	})
}
