package portal

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	apperrors "github.com/ovailles/tvharbor/internal/errors"
	"github.com/ovailles/tvharbor/internal/fetch"
	"github.com/ovailles/tvharbor/internal/logger"
	"github.com/ovailles/tvharbor/internal/models"
)

const (
	actionLiveStreams = "get_live_streams"
	actionVodStreams  = "get_vod_streams"
	actionSeries      = "get_series"
	actionSeriesInfo  = "get_series_info"

	liveExtension = "ts"
	vodExtension  = "mp4"
)

// Client queries a three-endpoint portal catalog API (live channels,
// movies, series) under one set of credentials and fans the results
// into channel records.
type Client struct {
	serverURL string
	username  string
	password  string
	fetcher   *fetch.Client
	logger    *logger.Logger
}

// NewClient validates the endpoint and credentials up front so a
// misconfigured playlist fails before any request is issued.
func NewClient(serverURL, username, password string, fetcher *fetch.Client) (*Client, error) {
	serverURL = strings.TrimSuffix(strings.TrimSpace(serverURL), "/")

	u, err := url.Parse(serverURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, apperrors.InvalidEndpoint("server URL must be absolute: " + serverURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, apperrors.InvalidEndpoint("unsupported scheme: " + u.Scheme)
	}
	if username == "" || password == "" {
		return nil, apperrors.InvalidEndpoint("username and password are required")
	}

	return &Client{
		serverURL: serverURL,
		username:  username,
		password:  password,
		fetcher:   fetcher,
		logger:    logger.AppLogger(),
	}, nil
}

// catalogResult carries one catalog's contribution out of the fan-out
type catalogResult struct {
	action   string
	required bool
	channels []models.Channel
	err      error
}

// Parse queries the three catalogs concurrently and joins them into a
// single channel list. The live catalog is load-bearing: its failure
// fails the whole parse. Movies and series are best-effort, since many
// deployments omit VoD catalogs; their failures degrade to an empty
// contribution and are logged.
func (c *Client) Parse(ctx context.Context, playlistID string) ([]models.Channel, error) {
	sources := []struct {
		action   string
		required bool
		fetch    func(context.Context, string) ([]models.Channel, error)
	}{
		{actionLiveStreams, true, c.fetchLive},
		{actionVodStreams, false, c.fetchMovies},
		{actionSeries, false, c.fetchSeries},
	}

	results := make([]catalogResult, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, action string, required bool, fn func(context.Context, string) ([]models.Channel, error)) {
			defer wg.Done()
			channels, err := fn(ctx, playlistID)
			results[i] = catalogResult{action: action, required: required, channels: channels, err: err}
		}(i, src.action, src.required, src.fetch)
	}
	wg.Wait()

	var channels []models.Channel
	for _, res := range results {
		if res.err != nil {
			if res.required {
				return nil, res.err
			}
			c.logger.WithFields(map[string]interface{}{
				"action": res.action,
				"error":  res.err.Error(),
			}).Warn("best-effort catalog failed, continuing without it")
			continue
		}
		channels = append(channels, res.channels...)
	}

	c.logger.WithFields(map[string]interface{}{
		"server":   c.serverURL,
		"channels": len(channels),
	}).Info("portal catalogs parsed")

	return channels, nil
}

// apiURL builds the catalog API URL for an action, with credentials
// escaped to prevent query injection from special characters.
func (c *Client) apiURL(action string, extra url.Values) string {
	q := url.Values{}
	q.Set("username", c.username)
	q.Set("password", c.password)
	q.Set("action", action)
	for key, values := range extra {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	return c.serverURL + "/player_api.php?" + q.Encode()
}

// streamURL builds a playback URL following the portal's fixed path
// template <base>/<kind>/<user>/<pass>/<id>.<ext>.
func (c *Client) streamURL(kind, id, ext string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s.%s",
		c.serverURL, kind,
		url.PathEscape(c.username), url.PathEscape(c.password),
		url.PathEscape(id), url.PathEscape(ext))
}

func (c *Client) fetchLive(ctx context.Context, playlistID string) ([]models.Channel, error) {
	streams, err := fetch.DecodeJSON[[]liveStream](ctx, c.fetcher, c.apiURL(actionLiveStreams, nil), fetch.CacheDefault)
	if err != nil {
		return nil, err
	}

	channels := make([]models.Channel, 0, len(streams))
	for _, s := range streams {
		id := s.StreamID.String()
		if id == "" {
			continue
		}
		name := strings.TrimSpace(s.Name)
		if name == "" {
			name = "Channel " + id
		}
		channels = append(channels, models.Channel{
			Identity:         models.NewIdentity(),
			Name:             name,
			PlaybackURL:      c.streamURL("live", id, liveExtension),
			LogoURL:          s.StreamIcon,
			Group:            s.CategoryName,
			SourceChannelRef: s.EpgChannelID.String(),
			ContentKind:      models.ContentKindLive,
			OriginPlaylistID: playlistID,
		})
	}
	return channels, nil
}

func (c *Client) fetchMovies(ctx context.Context, playlistID string) ([]models.Channel, error) {
	streams, err := fetch.DecodeJSON[[]vodStream](ctx, c.fetcher, c.apiURL(actionVodStreams, nil), fetch.CacheDefault)
	if err != nil {
		return nil, err
	}

	channels := make([]models.Channel, 0, len(streams))
	for _, s := range streams {
		id := s.StreamID.String()
		if id == "" {
			continue
		}
		ext := containerExtension(s.ContainerExtension, vodExtension)
		channels = append(channels, models.Channel{
			Identity:         models.NewIdentity(),
			Name:             strings.TrimSpace(s.Name),
			PlaybackURL:      c.streamURL("movie", id, ext),
			LogoURL:          s.StreamIcon,
			Group:            s.CategoryName,
			ContentKind:      models.ContentKindMovie,
			Rating:           s.Rating,
			ReleaseDate:      s.ReleaseDate,
			ContainerFormat:  ext,
			OriginPlaylistID: playlistID,
		})
	}
	return channels, nil
}

func (c *Client) fetchSeries(ctx context.Context, playlistID string) ([]models.Channel, error) {
	items, err := fetch.DecodeJSON[[]seriesItem](ctx, c.fetcher, c.apiURL(actionSeries, nil), fetch.CacheDefault)
	if err != nil {
		return nil, err
	}

	channels := make([]models.Channel, 0, len(items))
	for _, s := range items {
		id := s.SeriesID.String()
		if id == "" {
			continue
		}
		channels = append(channels, models.Channel{
			Identity:         models.NewIdentity(),
			Name:             strings.TrimSpace(s.Name),
			PlaybackURL:      c.streamURL("series", id, vodExtension),
			LogoURL:          s.Cover,
			Group:            s.CategoryName,
			SourceChannelRef: "series-" + id,
			ContentKind:      models.ContentKindSeries,
			Plot:             s.Plot,
			Director:         s.Director,
			CastList:         splitList(s.Cast),
			Genres:           splitList(s.Genre),
			ReleaseDate:      s.ReleaseDate,
			Rating:           s.Rating,
			OriginPlaylistID: playlistID,
		})
	}
	return channels, nil
}

// SeriesInfo enumerates the seasons and episodes of one series. It is
// an on-demand contract, invoked when the caller inspects a series,
// never during the bulk catalog pass.
func (c *Client) SeriesInfo(ctx context.Context, seriesID string) ([]models.Season, error) {
	extra := url.Values{"series_id": {seriesID}}
	info, err := fetch.DecodeJSON[seriesInfo](ctx, c.fetcher, c.apiURL(actionSeriesInfo, extra), fetch.CacheDefault)
	if err != nil {
		return nil, err
	}

	seasonNames := make(map[int]string)
	for _, s := range info.Seasons {
		if n, err := strconv.Atoi(s.SeasonNumber.String()); err == nil {
			seasonNames[n] = s.Name
		}
	}

	seasons := make([]models.Season, 0, len(info.Episodes))
	for numStr, eps := range info.Episodes {
		num, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}
		season := models.Season{Number: num, Name: seasonNames[num]}
		for _, ep := range eps {
			id := ep.ID.String()
			if id == "" {
				continue
			}
			epNum, _ := strconv.Atoi(ep.EpisodeNum.String())
			ext := containerExtension(ep.ContainerExtension, vodExtension)
			season.Episodes = append(season.Episodes, models.Episode{
				EpisodeNumber: epNum,
				Title:         strings.TrimSpace(ep.Title),
				PlaybackURL:   c.streamURL("series", id, ext),
				Synopsis:      ep.Info.Plot,
			})
		}
		sort.Slice(season.Episodes, func(i, j int) bool {
			return season.Episodes[i].EpisodeNumber < season.Episodes[j].EpisodeNumber
		})
		seasons = append(seasons, season)
	}

	sort.Slice(seasons, func(i, j int) bool {
		return seasons[i].Number < seasons[j].Number
	})
	return seasons, nil
}

// containerExtension defaults the container when the portal omits it
// or sends garbage in the field.
func containerExtension(ext, fallback string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" || len(ext) > 5 {
		return fallback
	}
	return strings.ToLower(ext)
}
