package testing

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ovailles/tvharbor/internal/models"
)

// TestDB creates an in-memory SQLite database for testing
func TestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Run migrations
	if err := db.AutoMigrate(
		&models.Playlist{},
		&models.Category{},
		&models.CategoryMembership{},
		&models.AppState{},
	); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// CleanupDB removes all records from test database tables
func CleanupDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	db.Exec("DELETE FROM category_memberships")
	db.Exec("DELETE FROM categories")
	db.Exec("DELETE FROM playlists")
	db.Exec("DELETE FROM app_state")
}

// CreatePlaylist creates a test playlist
func CreatePlaylist(db *gorm.DB, overrides ...func(*models.Playlist)) *models.Playlist {
	playlist := &models.Playlist{
		ID:        models.NewIdentity(),
		Name:      "Test Playlist",
		Kind:      models.PlaylistKindFile,
		URL:       "http://example.com/playlist.m3u",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	for _, override := range overrides {
		override(playlist)
	}

	db.Create(playlist)
	return playlist
}

// CreateCategory creates a test category
func CreateCategory(db *gorm.DB, overrides ...func(*models.Category)) *models.Category {
	category := &models.Category{
		ID:        models.NewIdentity(),
		Name:      "Test Category",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	for _, override := range overrides {
		override(category)
	}

	db.Create(category)
	return category
}

// TestChannel builds a channel record for testing without persisting it
func TestChannel(overrides ...func(*models.Channel)) models.Channel {
	channel := models.Channel{
		Identity:         models.NewIdentity(),
		Name:             "Test Channel",
		PlaybackURL:      "http://example.com/stream",
		Group:            "Test Group",
		ContentKind:      models.ContentKindLive,
		OriginPlaylistID: "test-playlist",
	}

	for _, override := range overrides {
		override(&channel)
	}
	return channel
}

// WithPortal sets up a playlist as a portal-API source
func WithPortal(serverURL, username, password string) func(*models.Playlist) {
	return func(playlist *models.Playlist) {
		playlist.Kind = models.PlaylistKindPortal
		playlist.URL = ""
		playlist.ServerURL = serverURL
		playlist.Username = username
		playlist.Password = password
	}
}

// WithCategoryOrder sets the sort rank for a category
func WithCategoryOrder(order int) func(*models.Category) {
	return func(category *models.Category) {
		category.Order = order
	}
}

// WithSourceRef sets the source EPG id for a channel
func WithSourceRef(ref string) func(*models.Channel) {
	return func(channel *models.Channel) {
		channel.SourceChannelRef = ref
	}
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error, message string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", message, err)
	}
}

// AssertEqual fails the test if expected != actual
func AssertEqual[T comparable](t *testing.T, expected, actual T, message string) {
	t.Helper()
	if expected != actual {
		t.Fatalf("%s: expected %v, got %v", message, expected, actual)
	}
}

// AssertNotNil fails the test if value is nil
func AssertNotNil(t *testing.T, value interface{}, message string) {
	t.Helper()
	if value == nil {
		t.Fatalf("%s: expected non-nil value", message)
	}
}

// AssertCount verifies the count of records in a table
func AssertCount(t *testing.T, db *gorm.DB, model interface{}, expected int64, message string) {
	t.Helper()
	var count int64
	db.Model(model).Count(&count)
	if count != expected {
		t.Fatalf("%s: expected count %d, got %d", message, expected, count)
	}
}

// TableTest represents a table-driven test case
type TableTest[T any] struct {
	Name     string
	Input    T
	Expected interface{}
	WantErr  bool
}

// RunTableTests executes table-driven tests
func RunTableTests[T any](t *testing.T, tests []TableTest[T], testFn func(t *testing.T, tc TableTest[T])) {
	for _, tc := range tests {
		t.Run(tc.Name, func(t *testing.T) {
			testFn(t, tc)
		})
	}
}

// Example usage documentation
func ExampleTestDB() {
	// In your test file:
	// func TestSomething(t *testing.T) {
	//     db := testing.TestDB(t)
	//     defer testing.CleanupDB(t, db)
	//
	//     playlist := testing.CreatePlaylist(db, testing.WithPortal("http://p", "u", "p"))
	//     testing.AssertEqual(t, models.PlaylistKindPortal, playlist.Kind, "kind mismatch")
	// }
	fmt.Println("See test files for usage examples")
}
