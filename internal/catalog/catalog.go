package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shaibs3/holovote/internal/apperr"
	"github.com/shaibs3/holovote/internal/models"
	"gorm.io/gorm"
)

// Table reads mirrored rows of one kind. T is the row model.
type Table[T any] struct {
	db   *gorm.DB
	kind models.Kind
}

func NewTable[T any](db *gorm.DB, kind models.Kind) *Table[T] {
	return &Table[T]{db: db, kind: kind}
}

func (t *Table[T]) Kind() models.Kind {
	return t.kind
}

// List returns every row ordered by display name
func (t *Table[T]) List(ctx context.Context) ([]T, error) {
	var rows []T
	err := t.ordered(t.withAssociations(ctx)).Find(&rows).Error
	if err != nil {
		return nil, apperr.Storage(fmt.Sprintf("Failed to retrieve %s", t.kind.Plural()), err)
	}
	return rows, nil
}

// Get returns one row by local id
func (t *Table[T]) Get(ctx context.Context, id uint) (*T, error) {
	var row T
	err := t.withAssociations(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("%s with ID %d not found", t.kind.Title(), id))
	}
	if err != nil {
		return nil, apperr.Storage(fmt.Sprintf("Failed to retrieve %s", t.kind), err)
	}
	return &row, nil
}

// Search matches the display column case-insensitively as a substring
func (t *Table[T]) Search(ctx context.Context, query string) ([]T, error) {
	if query == "" {
		return nil, apperr.Validation(fmt.Sprintf("%s must not be empty", t.kind.DisplayColumn()))
	}

	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	var rows []T
	err := t.ordered(t.withAssociations(ctx)).
		Where(fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '!'", t.kind.DisplayColumn()), pattern).
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Storage(fmt.Sprintf("Failed to search %s", t.kind.Plural()), err)
	}
	return rows, nil
}

func (t *Table[T]) withAssociations(ctx context.Context) *gorm.DB {
	q := t.db.WithContext(ctx)
	for _, assoc := range models.Preloads(t.kind) {
		q = q.Preload(assoc, func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		})
	}
	return q
}

func (t *Table[T]) ordered(q *gorm.DB) *gorm.DB {
	return q.Order(t.kind.DisplayColumn() + " ASC").Order("id ASC")
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
