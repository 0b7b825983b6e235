package ingest

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "github.com/ovailles/tvharbor/internal/errors"
	"github.com/ovailles/tvharbor/internal/fetch"
	"github.com/ovailles/tvharbor/internal/logger"
	"github.com/ovailles/tvharbor/internal/models"
	"github.com/ovailles/tvharbor/internal/parser/addon"
	"github.com/ovailles/tvharbor/internal/parser/m3u"
	"github.com/ovailles/tvharbor/internal/parser/portal"
	"github.com/ovailles/tvharbor/internal/reconcile"
	"github.com/ovailles/tvharbor/internal/store"
)

// Stats summarizes one ingestion operation
type Stats struct {
	PlaylistID string        `json:"playlist_id"`
	Parsed     int           `json:"parsed"`
	Restored   int           `json:"restored"`
	Total      int           `json:"total"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Service orchestrates ingestion: parse, reconcile, publish, persist.
// It is the single owner of the in-memory channel collection; all
// mutation goes through it so concurrent operations never interleave
// half-merged state.
type Service struct {
	mu       sync.RWMutex
	channels []models.Channel

	state      *store.StateStore
	collection *store.CollectionStore
	debouncer  *store.DebouncedWriter
	fetcher    *fetch.Client
	engine     *reconcile.Engine
	supersede  *supersede
	logger     *logger.Logger
}

// NewService wires the ingestion service
func NewService(state *store.StateStore, collection *store.CollectionStore, debouncer *store.DebouncedWriter, fetcher *fetch.Client) *Service {
	return &Service{
		state:      state,
		collection: collection,
		debouncer:  debouncer,
		fetcher:    fetcher,
		engine:     reconcile.NewEngine(),
		supersede:  newSupersede(),
		logger:     logger.AppLogger(),
	}
}

// Start loads the persisted collection into memory, pruning channels
// whose origin playlist no longer exists.
func (s *Service) Start() error {
	channels, err := s.collection.Load()
	if err != nil {
		return err
	}

	playlists, err := s.state.ListPlaylists()
	if err != nil {
		return err
	}
	valid := make(map[string]bool, len(playlists))
	for _, p := range playlists {
		valid[p.ID] = true
	}

	pruned := store.PruneOrphans(channels, valid)
	if len(pruned) != len(channels) {
		s.logger.WithFields(map[string]interface{}{
			"pruned": len(channels) - len(pruned),
		}).Info("dropped channels from deleted playlists")
		s.scheduleSave(pruned)
	}

	s.mu.Lock()
	s.channels = pruned
	s.mu.Unlock()
	return nil
}

// Channels returns a copy of the current collection
func (s *Service) Channels() []models.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

// Load runs one full ingestion for a playlist: fetch and parse its
// source, merge with the snapshot of persisted state captured at
// operation start, publish the merged list and schedule a coalesced
// save. Channels from other playlists are kept untouched.
func (s *Service) Load(ctx context.Context, playlistID string) (*Stats, error) {
	started := time.Now()

	playlist, err := s.state.GetPlaylist(playlistID)
	if err != nil {
		return nil, err
	}

	// Snapshot once: reconciliation must not observe state written by
	// a concurrent operation mid-merge.
	snapshot := s.Channels()
	membership, err := s.state.MembershipIndex()
	if err != nil {
		return nil, err
	}

	fresh, err := s.parse(ctx, playlist)
	if err != nil {
		return nil, err
	}

	merged := s.engine.Merge(fresh, snapshot, membership)

	// Replace this playlist's contribution, keep everything else
	s.mu.Lock()
	next := make([]models.Channel, 0, len(s.channels)+len(merged))
	for _, ch := range s.channels {
		if ch.OriginPlaylistID != playlistID {
			next = append(next, ch)
		}
	}
	next = append(next, merged...)
	s.channels = next
	s.mu.Unlock()

	s.scheduleSave(next)

	if err := s.state.SetLastLoadedPlaylist(playlistID); err != nil {
		// The load itself succeeded; a stale pointer only affects the
		// next startup default.
		s.logger.Warn("failed to record last-loaded playlist: " + err.Error())
	}

	restored := 0
	for _, ch := range merged {
		if len(ch.CategoryIDs) > 0 || ch.IsFavorite {
			restored++
		}
	}

	stats := &Stats{
		PlaylistID: playlistID,
		Parsed:     len(fresh),
		Restored:   restored,
		Total:      len(next),
		Elapsed:    time.Since(started),
	}

	s.logger.WithFields(map[string]interface{}{
		"playlist_id": playlistID,
		"parsed":      stats.Parsed,
		"total":       stats.Total,
		"elapsed_ms":  stats.Elapsed.Milliseconds(),
	}).Info("playlist loaded")

	return stats, nil
}

// parse dispatches to the parser matching the playlist kind
func (s *Service) parse(ctx context.Context, playlist *models.Playlist) ([]models.Channel, error) {
	switch playlist.Kind {
	case models.PlaylistKindFile:
		body, err := s.fetcher.Fetch(ctx, playlist.URL, fetch.CacheBypass)
		if err != nil {
			return nil, err
		}
		return m3u.NewParser().Parse(strings.NewReader(string(body)), playlist.ID)

	case models.PlaylistKindPortal:
		client, err := portal.NewClient(playlist.ServerURL, playlist.Username, playlist.Password, s.fetcher)
		if err != nil {
			return nil, err
		}
		return client.Parse(ctx, playlist.ID)

	case models.PlaylistKindAddon:
		return addon.NewParser(s.fetcher).Parse(ctx, playlist.URL, playlist.ID)

	default:
		return nil, apperrors.New(apperrors.CodeValidation, "unknown playlist kind: "+string(playlist.Kind))
	}
}

// SeriesInfo fetches the season/episode listing for a series channel
// on demand and caches it onto the in-memory record. Superseded by any
// newer request for the same series; cancellation is silent.
func (s *Service) SeriesInfo(ctx context.Context, identity string) ([]models.Season, error) {
	s.mu.RLock()
	var target *models.Channel
	for i := range s.channels {
		if s.channels[i].Identity == identity {
			ch := s.channels[i]
			target = &ch
			break
		}
	}
	s.mu.RUnlock()

	if target == nil {
		return nil, apperrors.NotFoundError("channel", identity)
	}
	if target.ContentKind != models.ContentKindSeries {
		return nil, apperrors.New(apperrors.CodeValidation, "channel is not a series")
	}
	if len(target.Seasons) > 0 {
		return target.Seasons, nil
	}

	playlist, err := s.state.GetPlaylist(target.OriginPlaylistID)
	if err != nil {
		return nil, err
	}
	if playlist.Kind != models.PlaylistKindPortal {
		return nil, apperrors.New(apperrors.CodeValidation, "season listing is only available for portal sources")
	}

	seriesID := strings.TrimPrefix(target.SourceChannelRef, "series-")

	var seasons []models.Season
	err = s.supersede.run(ctx, "series:"+seriesID, func(ctx context.Context) error {
		client, err := portal.NewClient(playlist.ServerURL, playlist.Username, playlist.Password, s.fetcher)
		if err != nil {
			return err
		}
		seasons, err = client.SeriesInfo(ctx, seriesID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if seasons == nil {
		// Superseded or genuinely empty: nothing to publish
		return nil, nil
	}

	s.mu.Lock()
	for i := range s.channels {
		if s.channels[i].Identity == identity {
			s.channels[i].Seasons = seasons
			break
		}
	}
	saved := make([]models.Channel, len(s.channels))
	copy(saved, s.channels)
	s.mu.Unlock()

	s.scheduleSave(saved)
	return seasons, nil
}

// SetFavorite toggles the favorite flag on a channel
func (s *Service) SetFavorite(identity string, favorite bool) error {
	return s.mutate(identity, func(ch *models.Channel) {
		ch.IsFavorite = favorite
	})
}

// AssignCategory adds a channel to a category, recording the durable
// membership by stable key so the assignment survives re-fetches.
func (s *Service) AssignCategory(identity, categoryID string) error {
	var stableKey string
	err := s.mutate(identity, func(ch *models.Channel) {
		ch.AddCategory(categoryID)
		stableKey = models.StableKey(*ch)
	})
	if err != nil {
		return err
	}
	return s.state.AddMembership(categoryID, stableKey)
}

// UnassignCategory removes a channel from a category
func (s *Service) UnassignCategory(identity, categoryID string) error {
	var stableKey string
	err := s.mutate(identity, func(ch *models.Channel) {
		ch.RemoveCategory(categoryID)
		stableKey = models.StableKey(*ch)
	})
	if err != nil {
		return err
	}
	return s.state.RemoveMembership(categoryID, stableKey)
}

// mutate applies fn to the channel with the given identity and
// schedules a coalesced save.
func (s *Service) mutate(identity string, fn func(*models.Channel)) error {
	s.mu.Lock()
	found := false
	for i := range s.channels {
		if s.channels[i].Identity == identity {
			fn(&s.channels[i])
			found = true
			break
		}
	}
	var saved []models.Channel
	if found {
		saved = make([]models.Channel, len(s.channels))
		copy(saved, s.channels)
	}
	s.mu.Unlock()

	if !found {
		return apperrors.NotFoundError("channel", identity)
	}
	s.scheduleSave(saved)
	return nil
}

// scheduleSave hands the collection to the debounced writer. The slice
// must not be mutated after scheduling; callers pass copies.
func (s *Service) scheduleSave(channels []models.Channel) {
	s.debouncer.Schedule(func() error {
		return s.collection.Save(channels)
	})
}

// Shutdown flushes any pending collection write
func (s *Service) Shutdown() {
	s.debouncer.Close()
}
