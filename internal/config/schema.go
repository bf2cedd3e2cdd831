package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
)

// OptionType is the value type of an option.
type OptionType string

const (
	TypeString OptionType = "string"
	TypeInt    OptionType = "int"
	TypeFloat  OptionType = "float"
	// TypeEnum accepts one of Option.Values, case-insensitively.
	TypeEnum OptionType = "enum"
)

// Option declares one configuration key.
type Option struct {
	// Key is the dotted option name, e.g. "log.level".
	Key         string
	Type        OptionType
	Default     string
	Description string
	// EnvVar, if set, overrides both the file and the default.
	EnvVar string
	Values []string
}

func (o Option) check(value string) error {
	var err error
	switch o.Type {
	case TypeString, "":
	case TypeInt:
		_, err = strconv.Atoi(value)
	case TypeFloat:
		_, err = strconv.ParseFloat(value, 64)
	case TypeEnum:
		if !slices.Contains(o.Values, strings.ToLower(value)) {
			return fmt.Errorf("expected one of %s, got %q", strings.Join(o.Values, "|"), value)
		}
	default:
		return fmt.Errorf("unknown option type %q", o.Type)
	}
	if err != nil {
		return fmt.Errorf("expected %s, got %q", o.Type, value)
	}
	return nil
}

// Schema is the set of known options. The profile
// section may override any registered key.
type Schema struct {
	options map[string]Option
}

// NewSchema returns a schema holding opts. A repeated key replaces the
// earlier declaration.
func NewSchema(opts ...Option) *Schema {
	s := &Schema{options: make(map[string]Option, len(opts))}
	for _, o := range opts {
		s.options[o.Key] = o
	}
	return s
}

// Lookup returns the declaration of key.
func (s *Schema) Lookup(key string) (Option, bool) {
	o, ok := s.options[key]
	return o, ok
}

// KeyProfile names the [section] whose options override the global ones.
const KeyProfile = "run.profile"

// Resolve returns the effective value of key: its environment variable if
// set, else the value from the active profile section, else the global
// config file value (c may be nil), else the default.
func (s *Schema) Resolve(c *Config, key string) string {
	o, known := s.options[key]
	if known && o.EnvVar != "" {
		if v, ok := os.LookupEnv(o.EnvVar); ok {
			return v
		}
	}
	if c != nil {
		var profile string
		if key != KeyProfile {
			profile = s.Resolve(c, KeyProfile)
		}
		if v, ok := c.GetSectionOption(profile, key); ok {
			return v
		}
	}
	return o.Default
}

// Validate lists every problem with c, sorted.
func (s *Schema) Validate(c *Config) []string {
	var issues []string
	check := func(where, key, value string) {
		o, ok := s.options[key]
		if !ok {
			issues = append(issues, fmt.Sprintf("unknown option%s: %q (value: %q)", where, key, value))
			return
		}
		if err := o.check(value); err != nil {
			issues = append(issues, fmt.Sprintf("option %q%s: %v", key, where, err))
		}
	}
	for key, value := range c.Global {
		check("", key, value)
	}
	for section, opts := range c.Sections {
		for key, value := range opts {
			check(fmt.Sprintf(" in [%s]", section), key, value)
		}
	}
	slices.Sort(issues)
	return issues
}

// GetString returns the effective value of key.
func (s *Schema) GetString(c *Config, key string) string { return s.Resolve(c, key) }

// GetInt returns the effective value of key as an int.
func (s *Schema) GetInt(c *Config, key string) (int, error) {
	v := s.Resolve(c, key)
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config %s: expected int, got %q", key, v)
	}
	return i, nil
}

// GetFloat returns the effective value of key as a float64.
func (s *Schema) GetFloat(c *Config, key string) (float64, error) {
	v := s.Resolve(c, key)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config %s: expected float, got %q", key, v)
	}
	return f, nil
}

// DefaultSchema declares every option heur reads.
func DefaultSchema() *Schema {
	return NewSchema(
		Option{Key: "log.level", Type: TypeEnum, Values: []string{"debug", "info", "warn", "error"}, Default: "info", Description: "Log level", EnvVar: "HEUR_LOG_LEVEL"},
		Option{Key: "log.format", Type: TypeEnum, Values: []string{"text", "json"}, Default: "text", Description: "Log output format", EnvVar: "HEUR_LOG_FORMAT"},

		Option{Key: "grid.height", Type: TypeInt, Default: "21", Description: "Rows of the dungeon map"},
		Option{Key: "grid.width", Type: TypeInt, Default: "79", Description: "Columns of the dungeon map"},
		Option{Key: "world.zone-marker", Default: "(for sale,", Description: "Message text marking a special zone"},

		Option{Key: "spatial.seed-mode", Type: TypeEnum, Values: []string{"deterministic", "free"}, Default: "deterministic", Description: "Neighbour shuffle seeding", EnvVar: "HEUR_SEED_MODE"},
		Option{Key: "spatial.seed", Type: TypeInt, Default: "0", Description: "Seed used in deterministic mode", EnvVar: "HEUR_SEED"},
		Option{Key: "spatial.hazards", Default: "peaceful,boulder", Description: "Occupant categories paths route around"},
		Option{Key: "spatial.sinks", Default: "door-closed", Description: "Categories reachable but never passed through"},

		Option{Key: "food.freshness-window", Type: TypeInt, Default: "20", Description: "Turns a kill stays edible"},
		Option{Key: "explore.until", Default: "score >= 950 && hp >= 0.9 * maxHp", Description: "Stop exploring once this expression holds"},
		Option{Key: "eat.when", Default: "time % 3 == 0 && hunger >= 1", Description: "Eat only while this expression holds"},
		Option{Key: "emergency.hp-fraction", Type: TypeFloat, Default: "0.25", Description: "Pray below this fraction of max HP"},
		Option{Key: "emergency.cooldown", Type: TypeInt, Default: "1000", Description: "Turns between prayers"},
		Option{Key: "predicate.cache-size", Type: TypeInt, Default: "256", Description: "Compiled expression cache capacity"},

		Option{Key: "puzzle.catalogue", Description: "YAML puzzle catalogue path, puzzle solving is disabled if empty", EnvVar: "HEUR_PUZZLES"},

		Option{Key: KeyProfile, Description: "Section whose options override the global ones", EnvVar: "HEUR_PROFILE"},
		Option{Key: "run.max-steps", Type: TypeInt, Default: "0", Description: "Stop after this many actions, 0 for no limit"},
		Option{Key: "run.stall-limit", Type: TypeInt, Default: "3", Description: "Consecutive idle root passes before the run stalls"},
	)
}
