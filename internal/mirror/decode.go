package mirror

import (
	"encoding/json"
	"fmt"

	"github.com/shaibs3/holovote/internal/models"
	"github.com/shaibs3/holovote/internal/swapi"
)

// reference points from a new row at rows of another kind, by external id
type reference struct {
	target   models.Kind
	swapiIDs []int
}

// decoded is one external record turned into a row ready to insert
type decoded struct {
	swapiID int
	hasID   bool
	url     string
	row     models.Entity
	refs    []reference
}

type decodeFunc func(raw json.RawMessage) (decoded, error)

var decoders = map[models.Kind]decodeFunc{
	models.KindCharacter: decodeCharacter,
	models.KindFilm:      decodeFilm,
	models.KindStarship:  decodeStarship,
}

func decodeCharacter(raw json.RawMessage) (decoded, error) {
	var p swapi.Person
	if err := json.Unmarshal(raw, &p); err != nil {
		return decoded{}, fmt.Errorf("failed to decode person record: %w", err)
	}
	id, ok := swapi.ExtractID(p.URL)
	return decoded{
		swapiID: id,
		hasID:   ok,
		url:     p.URL,
		row: &models.Character{
			Name:      p.Name,
			Height:    p.Height,
			Mass:      p.Mass,
			HairColor: p.HairColor,
			SkinColor: p.SkinColor,
			EyeColor:  p.EyeColor,
			BirthYear: p.BirthYear,
			Gender:    p.Gender,
			Homeworld: p.Homeworld,
			SwapiID:   id,
			URL:       p.URL,
		},
		refs: []reference{
			{target: models.KindFilm, swapiIDs: swapi.ExtractIDs(p.Films)},
			{target: models.KindStarship, swapiIDs: swapi.ExtractIDs(p.Starships)},
		},
	}, nil
}

func decodeFilm(raw json.RawMessage) (decoded, error) {
	var f swapi.Film
	if err := json.Unmarshal(raw, &f); err != nil {
		return decoded{}, fmt.Errorf("failed to decode film record: %w", err)
	}
	id, ok := swapi.ExtractID(f.URL)
	return decoded{
		swapiID: id,
		hasID:   ok,
		url:     f.URL,
		row: &models.Film{
			Title:        f.Title,
			EpisodeID:    f.EpisodeID,
			OpeningCrawl: f.OpeningCrawl,
			Director:     f.Director,
			Producer:     f.Producer,
			ReleaseDate:  f.ReleaseDate,
			SwapiID:      id,
			URL:          f.URL,
		},
		refs: []reference{
			{target: models.KindCharacter, swapiIDs: swapi.ExtractIDs(f.Characters)},
		},
	}, nil
}

func decodeStarship(raw json.RawMessage) (decoded, error) {
	var s swapi.Starship
	if err := json.Unmarshal(raw, &s); err != nil {
		return decoded{}, fmt.Errorf("failed to decode starship record: %w", err)
	}
	id, ok := swapi.ExtractID(s.URL)
	return decoded{
		swapiID: id,
		hasID:   ok,
		url:     s.URL,
		row: &models.Starship{
			Name:                 s.Name,
			Model:                s.Model,
			Manufacturer:         s.Manufacturer,
			CostInCredits:        s.CostInCredits,
			Length:               s.Length,
			MaxAtmospheringSpeed: s.MaxAtmospheringSpeed,
			Crew:                 s.Crew,
			Passengers:           s.Passengers,
			CargoCapacity:        s.CargoCapacity,
			Consumables:          s.Consumables,
			HyperdriveRating:     s.HyperdriveRating,
			MGLT:                 s.MGLT,
			StarshipClass:        s.StarshipClass,
			SwapiID:              id,
			URL:                  s.URL,
		},
		refs: []reference{
			{target: models.KindCharacter, swapiIDs: swapi.ExtractIDs(s.Pilots)},
		},
	}, nil
}

// joinRow builds the association row between a new row and a local target
func joinRow(owner models.Entity, target models.Kind, targetID uint) interface{} {
	switch owner.EntityKind() {
	case models.KindCharacter:
		if target == models.KindFilm {
			return &models.CharacterFilm{CharacterID: owner.EntityID(), FilmID: targetID}
		}
		return &models.CharacterStarship{CharacterID: owner.EntityID(), StarshipID: targetID}
	case models.KindFilm:
		return &models.CharacterFilm{CharacterID: targetID, FilmID: owner.EntityID()}
	default:
		return &models.CharacterStarship{CharacterID: targetID, StarshipID: owner.EntityID()}
	}
}
