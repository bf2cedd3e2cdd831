package sokoban

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joeycumines/heur/internal/grid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

var catalogueSchema = jsonschema.MustCompileString("catalogue.schema.json", schemaJSON)

// Catalogue is the set of known puzzles and their solutions.
type Catalogue struct {
	Puzzles []*Puzzle
}

type catalogueFile struct {
	Puzzles []struct {
		Name  string  `yaml:"name"`
		Map   string  `yaml:"map"`
		Moves [][]int `yaml:"moves"`
	} `yaml:"puzzles"`
}

// Load reads a YAML catalogue from path.
func Load(path string) (*Catalogue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalogue.
func Parse(raw []byte) (*Catalogue, error) {
	if err := validate(raw); err != nil {
		return nil, err
	}
	var f catalogueFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("catalogue: %w", err)
	}
	c := &Catalogue{Puzzles: make([]*Puzzle, 0, len(f.Puzzles))}
	for _, p := range f.Puzzles {
		m, err := ParseMap(p.Map)
		if err != nil {
			return nil, fmt.Errorf("catalogue: puzzle %q: %w", p.Name, err)
		}
		moves := make([]Move, len(p.Moves))
		for i, mv := range p.Moves {
			moves[i] = Move{Y: mv[0], X: mv[1], DY: mv[2], DX: mv[3]}
		}
		c.Puzzles = append(c.Puzzles, &Puzzle{Name: p.Name, Map: m, Moves: moves})
	}
	return c, nil
}

// validate checks the document against the catalogue schema. The YAML tree
// is normalized through JSON so the validator sees JSON types.
func validate(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("catalogue: %w", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("catalogue: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("catalogue: %w", err)
	}
	if err := catalogueSchema.Validate(v); err != nil {
		return fmt.Errorf("catalogue: %w", err)
	}
	return nil
}

// Match returns the first puzzle aligning with the level's walls, and its
// offset in level coordinates.
func (c *Catalogue) Match(walls grid.Grid[bool]) (*Puzzle, grid.Point, error) {
	for _, p := range c.Puzzles {
		if off, ok := p.Align(walls); ok {
			return p, off, nil
		}
	}
	return nil, grid.Point{}, ErrUnsolvable
}

// Names lists the puzzle names.
func (c *Catalogue) Names() string {
	names := make([]string, len(c.Puzzles))
	for i, p := range c.Puzzles {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}
