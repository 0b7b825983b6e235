package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ovailles/tvharbor/internal/config"
	apperrors "github.com/ovailles/tvharbor/internal/errors"
	"github.com/ovailles/tvharbor/internal/logger"
	"github.com/ovailles/tvharbor/internal/models"
)

// StateStore holds the small structured state: playlists, categories,
// the membership index and the last-loaded pointer. The bulk channel
// collection lives in CollectionStore, not here.
type StateStore struct {
	db *gorm.DB
}

// OpenState connects the state store using the configured driver and
// runs migrations.
func OpenState(cfg config.StorageConfig, logLevel string) (*StateStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
		)
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, apperrors.ConfigError("unsupported storage driver: "+cfg.Driver, nil)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormAdapter(logger.StoreLogger(), logLevel),
	})
	if err != nil {
		return nil, apperrors.StoreError("failed to connect state store", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperrors.StoreError("failed to get database instance", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&models.Playlist{},
		&models.Category{},
		&models.CategoryMembership{},
		&models.AppState{},
	); err != nil {
		return nil, apperrors.StoreError("failed to run migrations", err)
	}

	return &StateStore{db: db}, nil
}

// NewStateStoreForTest wraps an already-migrated gorm handle, for
// tests running against the in-memory database helper.
func NewStateStoreForTest(db *gorm.DB) *StateStore {
	return &StateStore{db: db}
}

// HealthCheck verifies state store connectivity
func (s *StateStore) HealthCheck() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperrors.StoreError("failed to get database instance", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return apperrors.StoreError("state store ping failed", err)
	}
	return nil
}

// Close closes the underlying connection
func (s *StateStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperrors.StoreError("failed to get database instance", err)
	}
	return sqlDB.Close()
}

// --- Playlists ---

// ListPlaylists returns all configured playlists, oldest first
func (s *StateStore) ListPlaylists() ([]models.Playlist, error) {
	var playlists []models.Playlist
	if err := s.db.Order("created_at").Find(&playlists).Error; err != nil {
		return nil, apperrors.StoreError("listing playlists", err)
	}
	return playlists, nil
}

// GetPlaylist returns one playlist by id
func (s *StateStore) GetPlaylist(id string) (*models.Playlist, error) {
	var playlist models.Playlist
	err := s.db.First(&playlist, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFoundError("playlist", id)
	}
	if err != nil {
		return nil, apperrors.StoreError("loading playlist", err)
	}
	return &playlist, nil
}

// SavePlaylist inserts or updates a playlist
func (s *StateStore) SavePlaylist(playlist *models.Playlist) error {
	if err := s.db.Save(playlist).Error; err != nil {
		return apperrors.StoreError("saving playlist", err)
	}
	return nil
}

// DeletePlaylist removes a playlist. Channels it produced are pruned
// from the collection on the next load, not here.
func (s *StateStore) DeletePlaylist(id string) error {
	res := s.db.Delete(&models.Playlist{}, "id = ?", id)
	if res.Error != nil {
		return apperrors.StoreError("deleting playlist", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFoundError("playlist", id)
	}
	return nil
}

// --- Categories ---

// ListCategories returns categories in their sort order
func (s *StateStore) ListCategories() ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.Order("sort_order").Find(&categories).Error; err != nil {
		return nil, apperrors.StoreError("listing categories", err)
	}
	return categories, nil
}

// SaveCategories replaces the full category list, renormalizing Order
// to match list position before persisting.
func (s *StateStore) SaveCategories(categories []models.Category) error {
	models.NormalizeCategoryOrder(categories)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		keep := make([]string, 0, len(categories))
		for i := range categories {
			if err := tx.Save(&categories[i]).Error; err != nil {
				return err
			}
			keep = append(keep, categories[i].ID)
		}
		// Drop categories no longer in the list, with their memberships
		query := tx.Model(&models.Category{})
		if len(keep) > 0 {
			query = query.Where("id NOT IN ?", keep)
		}
		var stale []models.Category
		if err := query.Find(&stale).Error; err != nil {
			return err
		}
		for _, cat := range stale {
			if err := tx.Delete(&models.CategoryMembership{}, "category_id = ?", cat.ID).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Category{}, "id = ?", cat.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.StoreError("saving categories", err)
	}
	return nil
}

// DeleteCategory removes one category and its memberships, then
// renormalizes the order of the remaining categories.
func (s *StateStore) DeleteCategory(id string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Category{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Delete(&models.CategoryMembership{}, "category_id = ?", id).Error; err != nil {
			return err
		}

		var remaining []models.Category
		if err := tx.Order("sort_order").Find(&remaining).Error; err != nil {
			return err
		}
		models.NormalizeCategoryOrder(remaining)
		for i := range remaining {
			if err := tx.Model(&models.Category{}).
				Where("id = ?", remaining[i].ID).
				Update("sort_order", remaining[i].Order).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFoundError("category", id)
	}
	if err != nil {
		return apperrors.StoreError("deleting category", err)
	}
	return nil
}

// --- Membership index ---

// MembershipIndex loads the full category membership index
func (s *StateStore) MembershipIndex() (models.MembershipIndex, error) {
	var rows []models.CategoryMembership
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, apperrors.StoreError("loading membership index", err)
	}
	index := make(models.MembershipIndex)
	for _, row := range rows {
		index[row.CategoryID] = append(index[row.CategoryID], row.StableKey)
	}
	return index, nil
}

// AddMembership records a (category, stable key) pair, idempotently
func (s *StateStore) AddMembership(categoryID, stableKey string) error {
	row := models.CategoryMembership{CategoryID: categoryID, StableKey: stableKey}
	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return apperrors.StoreError("recording membership", err)
	}
	return nil
}

// RemoveMembership drops a (category, stable key) pair
func (s *StateStore) RemoveMembership(categoryID, stableKey string) error {
	err := s.db.Delete(&models.CategoryMembership{},
		"category_id = ? AND stable_key = ?", categoryID, stableKey).Error
	if err != nil {
		return apperrors.StoreError("removing membership", err)
	}
	return nil
}

// --- Last-loaded pointer ---

// LastLoadedPlaylist returns the id of the most recently loaded
// playlist, empty when none was loaded yet.
func (s *StateStore) LastLoadedPlaylist() (string, error) {
	var state models.AppState
	err := s.db.First(&state, "key = ?", models.StateKeyLastLoadedPlaylist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.StoreError("loading last-loaded pointer", err)
	}
	return state.Value, nil
}

// SetLastLoadedPlaylist records the most recently loaded playlist
func (s *StateStore) SetLastLoadedPlaylist(id string) error {
	state := models.AppState{
		Key:       models.StateKeyLastLoadedPlaylist,
		Value:     id,
		UpdatedAt: time.Now(),
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&state).Error
	if err != nil {
		return apperrors.StoreError("saving last-loaded pointer", err)
	}
	return nil
}
