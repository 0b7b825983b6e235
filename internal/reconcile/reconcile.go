package reconcile

import (
	"github.com/ovailles/tvharbor/internal/logger"
	"github.com/ovailles/tvharbor/internal/models"
)

// Engine merges freshly parsed channels with the last persisted
// snapshot so user-owned state (favorites, category membership)
// survives re-fetches. It never fails: absence of a match is simply
// "no restored state".
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a reconciliation engine
func NewEngine() *Engine {
	return &Engine{logger: logger.AppLogger()}
}

// Merge produces the channel list that becomes the new source of
// truth. The merge is idempotent: merging an already-merged list
// against its own snapshot changes nothing.
//
// Matching goes through the stable key first and the surrogate
// identity second. When a persisted match is found, its CategoryIDs
// and IsFavorite are restored onto the fresh record; the persisted
// record's OriginPlaylistID never leaks into the new record. The
// membership index is then applied as a second, authoritative pass:
// it covers records whose per-record match failed but whose
// membership was recorded independently.
func (e *Engine) Merge(fresh, persisted []models.Channel, membership models.MembershipIndex) []models.Channel {
	byStableKey := make(map[string]*models.Channel, len(persisted))
	byIdentity := make(map[string]*models.Channel, len(persisted))

	// First record encountered per key wins, so the earliest-saved
	// entry keeps precedence over later duplicates.
	for i := range persisted {
		prev := &persisted[i]
		key := models.StableKey(*prev)
		if _, seen := byStableKey[key]; !seen {
			byStableKey[key] = prev
		}
		if prev.Identity != "" {
			if _, seen := byIdentity[prev.Identity]; !seen {
				byIdentity[prev.Identity] = prev
			}
		}
	}

	categoriesByKey := membership.ByStableKey()
	restored := 0

	merged := make([]models.Channel, len(fresh))
	for i, ch := range fresh {
		key := models.StableKey(ch)

		prev := byStableKey[key]
		if prev == nil {
			prev = byIdentity[ch.Identity]
		}
		if prev != nil {
			ch.CategoryIDs = append([]string(nil), prev.CategoryIDs...)
			ch.IsFavorite = prev.IsFavorite
			restored++
		}

		for _, categoryID := range categoriesByKey[key] {
			ch.AddCategory(categoryID)
		}

		merged[i] = ch
	}

	e.logger.WithFields(map[string]interface{}{
		"fresh":    len(fresh),
		"restored": restored,
	}).Debug("reconciliation merged")

	return merged
}
