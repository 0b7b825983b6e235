package api

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ovailles/tvharbor/internal/ingest"
	"github.com/ovailles/tvharbor/internal/store"
)

// Server represents the API server
type Server struct {
	router *gin.Engine
	ingest *ingest.Service
	state  *store.StateStore
}

// NewServer creates a new API server instance
func NewServer(ingestSvc *ingest.Service, state *store.StateStore) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(requestIDMiddleware())
	router.Use(requestLogMiddleware())
	router.Use(errorHandlerMiddleware())

	s := &Server{
		router: router,
		ingest: ingestSvc,
		state:  state,
	}

	s.setupRoutes()

	return s
}

// Run starts the API server on the specified port
func (s *Server) Run(port int) error {
	return s.router.Run(fmt.Sprintf(":%d", port))
}

// Router exposes the engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.healthCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		// Playlist sources
		v1.GET("/playlists", s.listPlaylists)
		v1.POST("/playlists", s.createPlaylist)
		v1.GET("/playlists/:id", s.getPlaylist)
		v1.PUT("/playlists/:id", s.updatePlaylist)
		v1.DELETE("/playlists/:id", s.deletePlaylist)
		v1.POST("/playlists/:id/load", s.loadPlaylist)

		// Channel collection
		v1.GET("/channels", s.listChannels)
		v1.GET("/channels/:id/seasons", s.channelSeasons)
		v1.PUT("/channels/:id/favorite", s.setFavorite)

		// Categories and membership
		v1.GET("/categories", s.listCategories)
		v1.PUT("/categories", s.saveCategories)
		v1.DELETE("/categories/:id", s.deleteCategory)
		v1.POST("/categories/:id/channels/:channelId", s.assignCategory)
		v1.DELETE("/categories/:id/channels/:channelId", s.unassignCategory)
	}
}
