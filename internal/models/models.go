package models

import "encoding/json"

// Entity is implemented by every mirrored row type
type Entity interface {
	EntityKind() Kind
	EntityID() uint
	DisplayName() string
	VoteCount() int64
}

// Character is a SWAPI person
type Character struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"index;size:255" json:"name"`
	Height    string `json:"height"`
	Mass      string `json:"mass"`
	HairColor string `json:"hair_color"`
	SkinColor string `json:"skin_color"`
	EyeColor  string `json:"eye_color"`
	BirthYear string `json:"birth_year"`
	Gender    string `json:"gender"`
	Homeworld string `json:"homeworld"`
	SwapiID   int    `gorm:"uniqueIndex;not null" json:"swapi_id"`
	URL       string `gorm:"uniqueIndex;size:255;not null" json:"url"`
	Votes     int64  `gorm:"not null;default:0" json:"votes"`

	Films     []Film     `gorm:"many2many:character_film;" json:"-"`
	Starships []Starship `gorm:"many2many:character_starship;" json:"-"`
}

func (Character) TableName() string { return "characters" }

func (c *Character) EntityKind() Kind    { return KindCharacter }
func (c *Character) EntityID() uint      { return c.ID }
func (c *Character) DisplayName() string { return c.Name }
func (c *Character) VoteCount() int64    { return c.Votes }

// MarshalJSON renders associations as local ids
func (c Character) MarshalJSON() ([]byte, error) {
	type plain Character
	return json.Marshal(struct {
		plain
		Films     []uint `json:"films"`
		Starships []uint `json:"starships"`
	}{plain(c), filmIDs(c.Films), starshipIDs(c.Starships)})
}

// Film is a SWAPI film
type Film struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Title        string `gorm:"index;size:255" json:"title"`
	EpisodeID    int    `json:"episode_id"`
	OpeningCrawl string `json:"opening_crawl"`
	Director     string `json:"director"`
	Producer     string `json:"producer"`
	ReleaseDate  string `json:"release_date"`
	SwapiID      int    `gorm:"uniqueIndex;not null" json:"swapi_id"`
	URL          string `gorm:"uniqueIndex;size:255;not null" json:"url"`
	Votes        int64  `gorm:"not null;default:0" json:"votes"`

	Characters []Character `gorm:"many2many:character_film;" json:"-"`
}

func (Film) TableName() string { return "films" }

func (f *Film) EntityKind() Kind    { return KindFilm }
func (f *Film) EntityID() uint      { return f.ID }
func (f *Film) DisplayName() string { return f.Title }
func (f *Film) VoteCount() int64    { return f.Votes }

func (f Film) MarshalJSON() ([]byte, error) {
	type plain Film
	return json.Marshal(struct {
		plain
		Characters []uint `json:"characters"`
	}{plain(f), characterIDs(f.Characters)})
}

// Starship is a SWAPI starship
type Starship struct {
	ID                   uint   `gorm:"primaryKey" json:"id"`
	Name                 string `gorm:"index;size:255" json:"name"`
	Model                string `json:"model"`
	Manufacturer         string `json:"manufacturer"`
	CostInCredits        string `json:"cost_in_credits"`
	Length               string `json:"length"`
	MaxAtmospheringSpeed string `json:"max_atmosphering_speed"`
	Crew                 string `json:"crew"`
	Passengers           string `json:"passengers"`
	CargoCapacity        string `json:"cargo_capacity"`
	Consumables          string `json:"consumables"`
	HyperdriveRating     string `json:"hyperdrive_rating"`
	MGLT                 string `gorm:"column:mglt" json:"MGLT"`
	StarshipClass        string `json:"starship_class"`
	SwapiID              int    `gorm:"uniqueIndex;not null" json:"swapi_id"`
	URL                  string `gorm:"uniqueIndex;size:255;not null" json:"url"`
	Votes                int64  `gorm:"not null;default:0" json:"votes"`

	Pilots []Character `gorm:"many2many:character_starship;joinForeignKey:StarshipID;joinReferences:CharacterID" json:"-"`
}

func (Starship) TableName() string { return "starships" }

func (s *Starship) EntityKind() Kind    { return KindStarship }
func (s *Starship) EntityID() uint      { return s.ID }
func (s *Starship) DisplayName() string { return s.Name }
func (s *Starship) VoteCount() int64    { return s.Votes }

func (s Starship) MarshalJSON() ([]byte, error) {
	type plain Starship
	return json.Marshal(struct {
		plain
		Pilots []uint `json:"pilots"`
	}{plain(s), characterIDs(s.Pilots)})
}

// CharacterFilm is a row of the character/film association
type CharacterFilm struct {
	CharacterID uint `gorm:"primaryKey"`
	FilmID      uint `gorm:"primaryKey"`
}

func (CharacterFilm) TableName() string { return "character_film" }

// CharacterStarship is a row of the character/starship association
type CharacterStarship struct {
	CharacterID uint `gorm:"primaryKey"`
	StarshipID  uint `gorm:"primaryKey"`
}

func (CharacterStarship) TableName() string { return "character_starship" }

// All returns one zero value of every table model, in migration order
func All() []interface{} {
	return []interface{}{&Film{}, &Starship{}, &Character{}, &CharacterFilm{}, &CharacterStarship{}}
}

// Preloads lists the associations loaded alongside a row of the kind
func Preloads(k Kind) []string {
	switch k {
	case KindCharacter:
		return []string{"Films", "Starships"}
	case KindFilm:
		return []string{"Characters"}
	default:
		return []string{"Pilots"}
	}
}

func filmIDs(films []Film) []uint {
	ids := make([]uint, len(films))
	for i := range films {
		ids[i] = films[i].ID
	}
	return ids
}

func starshipIDs(ships []Starship) []uint {
	ids := make([]uint, len(ships))
	for i := range ships {
		ids[i] = ships[i].ID
	}
	return ids
}

func characterIDs(chars []Character) []uint {
	ids := make([]uint, len(chars))
	for i := range chars {
		ids[i] = chars[i].ID
	}
	return ids
}
