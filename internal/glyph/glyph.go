// Package glyph defines the cell classification contract between the
// environment's glyph codes and the agent's world model. The concrete
// glyph-to-category table is supplied by the caller.
package glyph

import (
	"fmt"
	"strings"
)

// Glyph is an environment-specific cell code.
type Glyph int

// None marks a cell whose occupant has never been observed.
const None Glyph = -1

// Category is the coarse classification of a glyph.
type Category uint8

const (
	// Stone is unresolved or unlit terrain.
	Stone Category = iota
	Floor
	Corridor
	StairUp
	StairDown
	DoorOpen
	DoorClosed
	Wall
	// Monster is a hostile actor, or the agent itself.
	Monster
	// Peaceful is a blocking, non-hostile actor, such as a shopkeeper.
	Peaceful
	Pet
	Corpse
	Item
	Food
	Boulder
	Trap

	numCategories
)

var categoryNames = [numCategories]string{
	Stone:      "stone",
	Floor:      "floor",
	Corridor:   "corridor",
	StairUp:    "stair-up",
	StairDown:  "stair-down",
	DoorOpen:   "door-open",
	DoorClosed: "door-closed",
	Wall:       "wall",
	Monster:    "monster",
	Peaceful:   "peaceful",
	Pet:        "pet",
	Corpse:     "corpse",
	Item:       "item",
	Food:       "food",
	Boulder:    "boulder",
	Trap:       "trap",
}

func (c Category) String() string {
	if c < numCategories {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// Terrain reports whether c is walkable terrain.
func (c Category) Terrain() bool {
	switch c {
	case Floor, Corridor, StairUp, StairDown, DoorOpen:
		return true
	}
	return false
}

// Obstacle reports whether c is seen-but-impassable structure.
func (c Category) Obstacle() bool { return c == Wall || c == DoorClosed }

// Occupant reports whether c is an actor or object standing on walkable
// terrain.
func (c Category) Occupant() bool {
	switch c {
	case Monster, Peaceful, Pet, Corpse, Item, Food, Boulder:
		return true
	}
	return false
}

// Door reports whether c is a door in either state.
func (c Category) Door() bool { return c == DoorOpen || c == DoorClosed }

// Classifier maps glyph codes to categories.
type Classifier interface {
	Classify(g Glyph) Category
}

// Table is a map-backed Classifier. Unknown glyphs classify as Stone.
type Table map[Glyph]Category

var _ Classifier = Table(nil)

// Classify implements Classifier.
func (t Table) Classify(g Glyph) Category {
	if c, ok := t[g]; ok {
		return c
	}
	return Stone
}

// Set is a set of categories.
type Set uint32

// SetOf builds a Set from the given categories.
func SetOf(cs ...Category) Set {
	var s Set
	for _, c := range cs {
		s |= 1 << c
	}
	return s
}

// Has reports whether c is in the set.
func (s Set) Has(c Category) bool { return c < numCategories && s&(1<<c) != 0 }

// With returns the set plus c.
func (s Set) With(c Category) Set { return s | 1<<c }

func (s Set) String() string {
	var names []string
	for c := Category(0); c < numCategories; c++ {
		if s.Has(c) {
			names = append(names, c.String())
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}

// ParseCategory resolves a category by its String form.
func ParseCategory(name string) (Category, error) {
	for c := Category(0); c < numCategories; c++ {
		if categoryNames[c] == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown glyph category %q", name)
}

// ParseSet parses a comma-separated list of category names.
func ParseSet(list string) (Set, error) {
	var s Set
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c, err := ParseCategory(part)
		if err != nil {
			return 0, err
		}
		s = s.With(c)
	}
	return s, nil
}
