package voting

import (
	"context"

	"github.com/shaibs3/holovote/internal/models"
	"gorm.io/gorm"
)

// Tally is the ranking view of a row. Name is the title for films.
type Tally struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Votes int64  `json:"votes"`
}

// Ballot is the set of vote operations one entity kind supports
type Ballot interface {
	FindByID(ctx context.Context, db *gorm.DB, id uint) (Tally, error)
	IncrementVotes(ctx context.Context, db *gorm.DB, id uint) (bool, error)
	ListTop(ctx context.Context, db *gorm.DB, limit int) ([]Tally, error)
	DisplayNameOf(e models.Entity) string
}

// table implements Ballot for the row model T
type table[T any, PT interface {
	*T
	models.Entity
}] struct{}

func (t table[T, PT]) FindByID(ctx context.Context, db *gorm.DB, id uint) (Tally, error) {
	var row T
	if err := db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return Tally{}, err
	}
	return t.tally(PT(&row)), nil
}

// IncrementVotes adds one vote in a single UPDATE so racing votes never
// overwrite each other. It reports false when no row has that id.
func (table[T, PT]) IncrementVotes(ctx context.Context, db *gorm.DB, id uint) (bool, error) {
	res := db.WithContext(ctx).
		Model(PT(new(T))).
		Where("id = ?", id).
		UpdateColumn("votes", gorm.Expr("votes + ?", 1))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (t table[T, PT]) ListTop(ctx context.Context, db *gorm.DB, limit int) ([]Tally, error) {
	var rows []T
	err := db.WithContext(ctx).
		Order("votes DESC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	tallies := make([]Tally, len(rows))
	for i := range rows {
		tallies[i] = t.tally(PT(&rows[i]))
	}
	return tallies, nil
}

func (table[T, PT]) DisplayNameOf(e models.Entity) string {
	return e.DisplayName()
}

func (t table[T, PT]) tally(e models.Entity) Tally {
	return Tally{ID: e.EntityID(), Name: t.DisplayNameOf(e), Votes: e.VoteCount()}
}

// ballots is the kind to strategy table
var ballots = map[models.Kind]Ballot{
	models.KindCharacter: table[models.Character, *models.Character]{},
	models.KindFilm:      table[models.Film, *models.Film]{},
	models.KindStarship:  table[models.Starship, *models.Starship]{},
}
