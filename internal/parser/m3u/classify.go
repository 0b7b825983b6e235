package m3u

import (
	"net/url"
	"path"
	"strings"

	"github.com/ovailles/tvharbor/internal/models"
)

// videoExtensions are the container extensions that mark an entry as
// video-on-demand rather than a live stream.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".m4v":  true,
	".flv":  true,
	".wmv":  true,
	".webm": true,
	".mpg":  true,
	".mpeg": true,
	".ts":   false, // transport stream is the live default, never VoD
}

// seriesKeywords upgrade a VoD entry to series when the group label
// carries one of them, in the languages providers commonly use.
var seriesKeywords = []string{
	"series", "season", "episode",
	"serie", "séries", "saison",
	"temporada", "staffel",
}

// Classify derives the content kind of a playlist-file entry. Raw
// playlists carry no explicit kind, so the URL's path extension and
// the group label are the only signals available: a recognized video
// container extension means movie, upgraded to series when the group
// label carries a season/episode/series keyword; anything else is a
// live stream.
func Classify(rawURL, group string) models.ContentKind {
	ext := pathExtension(rawURL)
	if !videoExtensions[ext] {
		return models.ContentKindLive
	}

	groupLower := strings.ToLower(group)
	for _, keyword := range seriesKeywords {
		if strings.Contains(groupLower, keyword) {
			return models.ContentKindSeries
		}
	}
	return models.ContentKindMovie
}

// SplitGenres derives the genre list by splitting the group label on
// semicolons, dropping empty fragments.
func SplitGenres(group string) []string {
	if group == "" {
		return nil
	}
	var genres []string
	for _, part := range strings.Split(group, ";") {
		if part = strings.TrimSpace(part); part != "" {
			genres = append(genres, part)
		}
	}
	return genres
}

func pathExtension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToLower(path.Ext(rawURL))
	}
	return strings.ToLower(path.Ext(u.Path))
}
