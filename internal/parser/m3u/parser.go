package m3u

import (
	"bufio"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	apperrors "github.com/ovailles/tvharbor/internal/errors"
	"github.com/ovailles/tvharbor/internal/logger"
	"github.com/ovailles/tvharbor/internal/models"
)

const headerToken = "#EXTM3U"

// attrPattern tolerantly extracts key="value" pairs from a metadata
// line. Unquoted junk between pairs is ignored rather than rejected.
var attrPattern = regexp.MustCompile(`([a-zA-Z0-9][a-zA-Z0-9-]*)="([^"]*)"`)

// ParseStats tracks parsing statistics
type ParseStats struct {
	TotalLines     int
	ParsedEntries  int
	OrphanURLs     int
	DanglingExtinf int
}

// Parser converts M3U playlist text into normalized channel records.
// It is a pure transform over the byte stream; fetching the playlist
// happens in the caller.
type Parser struct {
	logger *logger.Logger
	stats  ParseStats
}

// NewParser creates a new parser instance
func NewParser() *Parser {
	return &Parser{logger: logger.AppLogger()}
}

// NewParserWithLogger creates a new parser instance with a custom logger
func NewParserWithLogger(log *logger.Logger) *Parser {
	return &Parser{logger: log}
}

// Parse reads an M3U document and produces one channel per
// metadata-line/URL-line pair. The first non-blank line must be the
// #EXTM3U header. Malformed individual entries are skipped, not fatal:
// a URL line with no preceding metadata line is silently dropped, the
// usual tolerance for hand-edited playlists.
func (p *Parser) Parse(r io.Reader, playlistID string) ([]models.Channel, error) {
	p.stats = ParseStats{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var channels []models.Channel
	var pending *pendingEntry
	headerSeen := false

	for scanner.Scan() {
		p.stats.TotalLines++
		line := strings.TrimSpace(decodeLine(scanner.Bytes()))

		if line == "" {
			continue
		}

		if !headerSeen {
			if !strings.HasPrefix(strings.ToUpper(line), headerToken) {
				return nil, apperrors.FormatError("first non-blank line is not " + headerToken)
			}
			headerSeen = true
			continue
		}

		if strings.HasPrefix(strings.ToUpper(line), "#EXTINF") {
			if pending != nil {
				p.stats.DanglingExtinf++
			}
			pending = parseExtinf(line)
			continue
		}

		// Other comment lines carry no entry data
		if strings.HasPrefix(line, "#") {
			continue
		}

		// URL line
		if pending == nil {
			p.stats.OrphanURLs++
			continue
		}
		channels = append(channels, pending.resolve(line, playlistID))
		p.stats.ParsedEntries++
		pending = nil
	}

	if err := scanner.Err(); err != nil {
		return nil, apperrors.FormatError("reading playlist: " + err.Error())
	}
	if !headerSeen {
		return nil, apperrors.FormatError("playlist is empty, missing " + headerToken + " header")
	}
	if pending != nil {
		p.stats.DanglingExtinf++
	}

	p.logger.WithFields(map[string]interface{}{
		"total_lines": p.stats.TotalLines,
		"parsed":      p.stats.ParsedEntries,
		"orphan_urls": p.stats.OrphanURLs,
	}).Info("playlist parsed")

	return channels, nil
}

// Stats returns the statistics of the last Parse call
func (p *Parser) Stats() ParseStats {
	return p.stats
}

// pendingEntry holds the metadata line waiting for its URL line
type pendingEntry struct {
	attrs map[string]string
	title string
}

// parseExtinf extracts attributes and the display title from an
// EXTINF metadata line.
func parseExtinf(line string) *pendingEntry {
	entry := &pendingEntry{attrs: Attributes(line)}

	// Display title is the text after the last comma, but commas also
	// appear inside quoted attribute values; strip those first.
	stripped := attrPattern.ReplaceAllString(line, "")
	if idx := strings.LastIndex(stripped, ","); idx >= 0 {
		entry.title = strings.TrimSpace(stripped[idx+1:])
	}
	return entry
}

// Attributes extracts key="value" pairs from a metadata line. It is a
// pure function so the tolerant extraction can be tested without any
// playlist plumbing around it.
func Attributes(line string) map[string]string {
	attrs := make(map[string]string)
	for _, match := range attrPattern.FindAllStringSubmatch(line, -1) {
		attrs[strings.ToLower(match[1])] = match[2]
	}
	return attrs
}

// resolve combines the pending metadata with the URL line into a
// normalized channel record.
func (e *pendingEntry) resolve(rawURL, playlistID string) models.Channel {
	name := e.title
	if name == "" {
		name = e.attrs["tvg-name"]
	}
	group := e.attrs["group-title"]

	return models.Channel{
		Identity:         models.NewIdentity(),
		Name:             name,
		PlaybackURL:      rawURL,
		LogoURL:          e.attrs["tvg-logo"],
		Group:            group,
		SourceChannelRef: e.attrs["tvg-id"],
		ContentKind:      Classify(rawURL, group),
		Genres:           SplitGenres(group),
		OriginPlaylistID: playlistID,
	}
}

// decodeLine interprets a raw line as UTF-8, falling back to Latin-1
// for legacy playlists that were never re-encoded.
func decodeLine(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}
