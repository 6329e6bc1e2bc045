package models

import (
	"fmt"
	"strings"

	"github.com/shaibs3/holovote/internal/swapi"
)

// Kind is one of the entity types mirrored from SWAPI
type Kind string

const (
	KindCharacter Kind = "character"
	KindFilm      Kind = "film"
	KindStarship  Kind = "starship"
)

// Kinds lists every recognized kind in a fixed order
var Kinds = []Kind{KindCharacter, KindFilm, KindStarship}

// ParseKind validates a caller-supplied kind
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("invalid entity type: %s", s)
	}
	return k, nil
}

func (k Kind) IsValid() bool {
	switch k {
	case KindCharacter, KindFilm, KindStarship:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// Title is the capitalized kind, used in caller-facing messages
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Plural is the route segment for the kind
func (k Kind) Plural() string {
	return string(k) + "s"
}

// Table is the relational table holding rows of this kind
func (k Kind) Table() string {
	return k.Plural()
}

// Resource is the SWAPI collection the kind is mirrored from
func (k Kind) Resource() swapi.Resource {
	switch k {
	case KindCharacter:
		return swapi.People
	case KindFilm:
		return swapi.Films
	default:
		return swapi.Starships
	}
}

// DisplayColumn is the column shown as the entity's name
func (k Kind) DisplayColumn() string {
	if k == KindFilm {
		return "title"
	}
	return "name"
}
