package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shaibs3/holovote/internal/models"
	"github.com/shaibs3/holovote/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupTestDB opens a private, migrated in-memory store for one test
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	configJSON, _ := json.Marshal(storage.DbProviderConfig{
		DbType:       storage.DbTypeMemory,
		ExtraDetails: map[string]interface{}{},
	})
	db, err := storage.NewDbProviderFactory(zap.NewNop(), nil).CreateProvider(string(configJSON))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateTestCharacter inserts a character with the given name and votes
func CreateTestCharacter(t *testing.T, db *gorm.DB, swapiID int, name string, votes int64) *models.Character {
	t.Helper()

	c := &models.Character{
		Name:    name,
		SwapiID: swapiID,
		URL:     fmt.Sprintf("https://swapi.info/api/people/%d", swapiID),
		Votes:   votes,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("Failed to create test character: %v", err)
	}
	return c
}

// CreateTestFilm inserts a film with the given title and votes
func CreateTestFilm(t *testing.T, db *gorm.DB, swapiID int, title string, votes int64) *models.Film {
	t.Helper()

	f := &models.Film{
		Title:     title,
		EpisodeID: swapiID + 3,
		SwapiID:   swapiID,
		URL:       fmt.Sprintf("https://swapi.info/api/films/%d", swapiID),
		Votes:     votes,
	}
	if err := db.Create(f).Error; err != nil {
		t.Fatalf("Failed to create test film: %v", err)
	}
	return f
}

// CreateTestStarship inserts a starship with the given name and votes
func CreateTestStarship(t *testing.T, db *gorm.DB, swapiID int, name string, votes int64) *models.Starship {
	t.Helper()

	s := &models.Starship{
		Name:    name,
		SwapiID: swapiID,
		URL:     fmt.Sprintf("https://swapi.info/api/starships/%d", swapiID),
		Votes:   votes,
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("Failed to create test starship: %v", err)
	}
	return s
}

// VotesOf reads the current vote counter of one row
func VotesOf(t *testing.T, db *gorm.DB, kind models.Kind, id uint) int64 {
	t.Helper()

	var votes int64
	if err := db.Table(kind.Table()).Where("id = ?", id).Select("votes").Scan(&votes).Error; err != nil {
		t.Fatalf("Failed to read votes: %v", err)
	}
	return votes
}

// CountRows returns the number of rows of a kind
func CountRows(t *testing.T, db *gorm.DB, kind models.Kind) int64 {
	t.Helper()

	var n int64
	if err := db.Table(kind.Table()).Count(&n).Error; err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	jsonBody, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided value
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
