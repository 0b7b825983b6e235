package addon

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/ovailles/tvharbor/internal/errors"
	"github.com/ovailles/tvharbor/internal/fetch"
	"github.com/ovailles/tvharbor/internal/logger"
	"github.com/ovailles/tvharbor/internal/models"
)

const manifestPath = "/manifest.json"

// Manifest is the add-on's self-description document
type Manifest struct {
	ID          string    `json:"id"`
	Version     string    `json:"version"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Types       []string  `json:"types"`
	Catalogs    []Catalog `json:"catalogs"`
}

// Catalog is one catalog declared by the manifest
type Catalog struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Parser materializes one placeholder channel per catalog an add-on
// declares. Full catalog/stream resolution is deliberately not done
// here: the placeholder's playback URL is the catalog endpoint itself,
// deterministic from addon URL + catalog type + catalog id, so a
// downstream resolver can complete it later.
type Parser struct {
	fetcher *fetch.Client
	logger  *logger.Logger
}

// NewParser creates an addon manifest parser
func NewParser(fetcher *fetch.Client) *Parser {
	return &Parser{fetcher: fetcher, logger: logger.AppLogger()}
}

// NormalizeManifestURL rewrites the supplied base URL to end in the
// fixed manifest path segment.
func NormalizeManifestURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", apperrors.InvalidURL(rawURL, err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(u.Path, manifestPath) {
		u.Path += manifestPath
	}
	return u.String(), nil
}

// Parse fetches the manifest and produces placeholder channels
func (p *Parser) Parse(ctx context.Context, addonURL, playlistID string) ([]models.Channel, error) {
	manifestURL, err := NormalizeManifestURL(addonURL)
	if err != nil {
		return nil, err
	}

	manifest, err := fetch.DecodeJSON[Manifest](ctx, p.fetcher, manifestURL, fetch.CacheDefault)
	if err != nil {
		return nil, err
	}
	if len(manifest.Catalogs) == 0 {
		return nil, apperrors.NoCatalogs(addonURL)
	}

	base := strings.TrimSuffix(manifestURL, manifestPath)

	channels := make([]models.Channel, 0, len(manifest.Catalogs))
	for _, cat := range manifest.Catalogs {
		if cat.ID == "" || cat.Type == "" {
			continue
		}
		name := cat.Name
		if name == "" {
			name = cat.ID
		}
		channels = append(channels, models.Channel{
			Identity:         models.NewIdentity(),
			Name:             name,
			PlaybackURL:      catalogURL(base, cat.Type, cat.ID),
			Group:            manifest.Name,
			SourceChannelRef: manifest.ID + "/" + cat.ID,
			ContentKind:      kindForCatalogType(cat.Type),
			OriginPlaylistID: playlistID,
		})
	}
	if len(channels) == 0 {
		return nil, apperrors.NoCatalogs(addonURL)
	}

	p.logger.WithFields(map[string]interface{}{
		"addon":    manifest.ID,
		"catalogs": len(channels),
	}).Info("addon manifest parsed")

	return channels, nil
}

// catalogURL is deterministic from addon URL + catalog type + id, so
// re-fetching the same manifest yields the same stable keys.
func catalogURL(base, catalogType, catalogID string) string {
	return fmt.Sprintf("%s/catalog/%s/%s.json",
		base, url.PathEscape(catalogType), url.PathEscape(catalogID))
}

func kindForCatalogType(catalogType string) models.ContentKind {
	switch strings.ToLower(catalogType) {
	case "movie":
		return models.ContentKindMovie
	case "series":
		return models.ContentKindSeries
	default:
		return models.ContentKindLive
	}
}
