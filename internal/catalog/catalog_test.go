package catalog

import (
	"context"
	"testing"

	"github.com/shaibs3/holovote/internal/apperr"
	"github.com/shaibs3/holovote/internal/models"
	"github.com/shaibs3/holovote/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(rows []models.Character) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

func TestTable_ListOrdersByDisplayName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CreateTestCharacter(t, db, 2, "C-3PO", 0)
	testutil.CreateTestCharacter(t, db, 1, "Luke Skywalker", 0)
	testutil.CreateTestCharacter(t, db, 3, "Beru Whitesun lars", 0)

	rows, err := NewTable[models.Character](db, models.KindCharacter).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Beru Whitesun lars", "C-3PO", "Luke Skywalker"}, names(rows))
}

func TestTable_GetIncludesAssociations(t *testing.T) {
	db := testutil.SetupTestDB(t)
	luke := testutil.CreateTestCharacter(t, db, 1, "Luke Skywalker", 0)
	hope := testutil.CreateTestFilm(t, db, 1, "A New Hope", 0)
	require.NoError(t, db.Create(&models.CharacterFilm{CharacterID: luke.ID, FilmID: hope.ID}).Error)

	films := NewTable[models.Film](db, models.KindFilm)
	film, err := films.Get(context.Background(), hope.ID)
	require.NoError(t, err)
	require.Len(t, film.Characters, 1)
	assert.Equal(t, luke.ID, film.Characters[0].ID)

	chars := NewTable[models.Character](db, models.KindCharacter)
	char, err := chars.Get(context.Background(), luke.ID)
	require.NoError(t, err)
	require.Len(t, char.Films, 1)
	assert.Equal(t, "A New Hope", char.Films[0].Title)
}

func TestTable_GetMissingRow(t *testing.T) {
	db := testutil.SetupTestDB(t)

	_, err := NewTable[models.Starship](db, models.KindStarship).Get(context.Background(), 42)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "Starship with ID 42 not found", apperr.Detail(err, ""))
}

func TestTable_SearchIsCaseInsensitive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CreateTestCharacter(t, db, 1, "Luke Skywalker", 0)
	testutil.CreateTestCharacter(t, db, 2, "Anakin Skywalker", 0)
	testutil.CreateTestCharacter(t, db, 3, "Leia Organa", 0)

	table := NewTable[models.Character](db, models.KindCharacter)
	lower, err := table.Search(context.Background(), "luke")
	require.NoError(t, err)
	upper, err := table.Search(context.Background(), "Luke")
	require.NoError(t, err)
	assert.Equal(t, names(lower), names(upper))
	assert.Equal(t, []string{"Luke Skywalker"}, names(lower))

	walkers, err := table.Search(context.Background(), "SKYWALKER")
	require.NoError(t, err)
	assert.Equal(t, []string{"Anakin Skywalker", "Luke Skywalker"}, names(walkers))
}

func TestTable_SearchFilmsByTitle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CreateTestFilm(t, db, 1, "A New Hope", 0)
	testutil.CreateTestFilm(t, db, 2, "The Empire Strikes Back", 0)

	rows, err := NewTable[models.Film](db, models.KindFilm).Search(context.Background(), "empire")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "The Empire Strikes Back", rows[0].Title)
}

func TestTable_SearchTreatsWildcardsLiterally(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CreateTestStarship(t, db, 1, "X-wing", 0)
	testutil.CreateTestStarship(t, db, 2, "100% Falcon", 0)

	table := NewTable[models.Starship](db, models.KindStarship)
	rows, err := table.Search(context.Background(), "%")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "100% Falcon", rows[0].Name)

	rows, err = table.Search(context.Background(), " ")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "100% Falcon", rows[0].Name)

	_, err = table.Search(context.Background(), "")
	require.ErrorIs(t, err, apperr.ErrValidation)
}
