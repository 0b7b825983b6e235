package models

import (
	"net/url"
	"strings"
)

// StableKey derives a source-independent identifier used to match the
// same logical channel across independent re-fetches. Surrogate
// identities are minted fresh every parse, so persistence joins go
// through this key instead.
//
// Branch priority, in descending order of stability against
// provider-side churn:
//  1. source EPG id (tvg id), lower-cased
//  2. playback URL with query and fragment stripped, lower-cased
//  3. name+group composite, both trimmed and lower-cased, when at
//     least one is non-empty
//  4. the surrogate identity itself, lower-cased; this branch cannot
//     be matched again and exists only so the function is total
//
// Each branch carries a distinct prefix so values from different
// branches can never collide.
func StableKey(c Channel) string {
	if ref := strings.TrimSpace(c.SourceChannelRef); ref != "" {
		return "tvg:" + strings.ToLower(ref)
	}

	if u := normalizePlaybackURL(c.PlaybackURL); u != "" {
		return "url:" + u
	}

	name := strings.ToLower(strings.TrimSpace(c.Name))
	group := strings.ToLower(strings.TrimSpace(c.Group))
	if name != "" || group != "" {
		return "name:" + name + "|" + group
	}

	return "id:" + strings.ToLower(c.Identity)
}

// normalizePlaybackURL strips the query string and fragment from a
// playback URL and lower-cases the remainder. Providers rotate session
// tokens in the query string, so it must not participate in identity.
func normalizePlaybackURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		// Unparseable URLs still get a best-effort normalization
		if i := strings.IndexAny(raw, "?#"); i >= 0 {
			raw = raw[:i]
		}
		return strings.ToLower(raw)
	}

	u.RawQuery = ""
	u.Fragment = ""
	return strings.ToLower(u.String())
}
