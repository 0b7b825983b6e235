package portal

import (
	"encoding/json"
	"strconv"
	"strings"
)

// flexID absorbs the portal's habit of sending ids as either JSON
// numbers or strings, depending on panel version.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(strconv.FormatInt(int64(n), 10))
	return nil
}

func (f flexID) String() string {
	return string(f)
}

// liveStream is one record of the get_live_streams response
type liveStream struct {
	StreamID     flexID `json:"stream_id"`
	Name         string `json:"name"`
	EpgChannelID flexID `json:"epg_channel_id"`
	StreamIcon   string `json:"stream_icon"`
	CategoryName string `json:"category_name"`
}

// vodStream is one record of the get_vod_streams response
type vodStream struct {
	StreamID           flexID `json:"stream_id"`
	Name               string `json:"name"`
	StreamIcon         string `json:"stream_icon"`
	Rating             string `json:"rating"`
	ReleaseDate        string `json:"releasedate"`
	ContainerExtension string `json:"container_extension"`
	CategoryName       string `json:"category_name"`
}

// seriesItem is one record of the get_series response
type seriesItem struct {
	SeriesID     flexID `json:"series_id"`
	Name         string `json:"name"`
	Cover        string `json:"cover"`
	Plot         string `json:"plot"`
	Cast         string `json:"cast"`
	Director     string `json:"director"`
	Genre        string `json:"genre"`
	ReleaseDate  string `json:"releaseDate"`
	Rating       string `json:"rating"`
	CategoryName string `json:"category_name"`
}

// seriesInfo is the get_series_info response, keyed by season number
type seriesInfo struct {
	Episodes map[string][]seriesEpisode `json:"episodes"`
	Seasons  []struct {
		SeasonNumber flexID `json:"season_number"`
		Name         string `json:"name"`
	} `json:"seasons"`
}

type seriesEpisode struct {
	ID                 flexID `json:"id"`
	EpisodeNum         flexID `json:"episode_num"`
	Title              string `json:"title"`
	ContainerExtension string `json:"container_extension"`
	Info               struct {
		Plot string `json:"plot"`
	} `json:"info"`
}

// splitList turns the portal's comma-joined list fields (cast, genre)
// into a slice, dropping empty fragments.
func splitList(joined string) []string {
	if joined == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(joined, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
