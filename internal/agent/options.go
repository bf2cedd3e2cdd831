package agent

import (
	"fmt"
	"log/slog"

	"github.com/joeycumines/heur/internal/config"
	"github.com/joeycumines/heur/internal/env"
	"github.com/joeycumines/heur/internal/glyph"
	"github.com/joeycumines/heur/internal/predicate"
	"github.com/joeycumines/heur/internal/sokoban"
	"github.com/joeycumines/heur/internal/spatial"
)

// Options tunes an Agent.
type Options struct {
	// Height and Width are the fixed map dimensions.
	Height, Width int
	SeedMode      spatial.SeedMode
	Seed          uint64
	// Hazards are the occupants paths route around and walks stop at.
	Hazards glyph.Set
	// Sinks are reached but never passed through.
	Sinks glyph.Set
	// ZoneMarker is the message text flagging a special zone such as a shop.
	ZoneMarker string
	// FreshnessWindow is how many turns a kill stays edible.
	FreshnessWindow int
	// ExploreUntil stops the unbounded exploration candidate once it holds.
	ExploreUntil string
	// EatWhen gates the eating candidate.
	EatWhen string
	// EmergencyHPFraction triggers prayer below that fraction of max HP.
	EmergencyHPFraction float64
	// EmergencyCooldown is the minimum number of turns between prayers.
	EmergencyCooldown int
	// Catalogue enables the puzzle solver. Nil disables it.
	Catalogue *sokoban.Catalogue
	CacheSize int
	// MaxSteps ends the run after that many actions. Zero means no limit.
	MaxSteps int
	// StallLimit is how many consecutive idle root passes end the run.
	StallLimit int
	Logger     *slog.Logger
}

// Option modifies Options.
type Option func(*Options)

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Height:              21,
		Width:               79,
		SeedMode:            spatial.Deterministic,
		Hazards:             spatial.DefaultHazards,
		Sinks:               spatial.DefaultSinks,
		ZoneMarker:          env.MarkerForSale,
		FreshnessWindow:     20,
		ExploreUntil:        predicate.DefaultExploreUntil,
		EatWhen:             predicate.DefaultEatWhen,
		EmergencyHPFraction: 0.25,
		EmergencyCooldown:   1000,
		CacheSize:           predicate.DefaultCacheSize,
		StallLimit:          3,
	}
}

// WithOptions replaces every option.
func WithOptions(o Options) Option { return func(dst *Options) { *dst = o } }

// WithSize sets the map dimensions.
func WithSize(height, width int) Option {
	return func(o *Options) { o.Height, o.Width = height, width }
}

// WithSeed sets the path tie-breaking seed mode.
func WithSeed(mode spatial.SeedMode, seed uint64) Option {
	return func(o *Options) { o.SeedMode, o.Seed = mode, seed }
}

// WithCatalogue enables the puzzle solver.
func WithCatalogue(c *sokoban.Catalogue) Option { return func(o *Options) { o.Catalogue = c } }

// WithMaxSteps bounds the run.
func WithMaxSteps(n int) Option { return func(o *Options) { o.MaxSteps = n } }

// WithLogger sets the logger. Nil means slog.Default.
func WithLogger(l *slog.Logger) Option { return func(o *Options) { o.Logger = l } }

func (o Options) validate() error {
	switch {
	case o.Height <= 0 || o.Width <= 0:
		return fmt.Errorf("agent: invalid map size %dx%d", o.Height, o.Width)
	case o.FreshnessWindow < 0:
		return fmt.Errorf("agent: negative freshness window %d", o.FreshnessWindow)
	case o.EmergencyHPFraction < 0 || o.EmergencyHPFraction > 1:
		return fmt.Errorf("agent: emergency hp fraction %v outside [0, 1]", o.EmergencyHPFraction)
	case o.StallLimit <= 0:
		return fmt.Errorf("agent: stall limit must be positive, got %d", o.StallLimit)
	}
	if _, err := spatial.ParseSeedMode(string(o.SeedMode)); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	return nil
}

// OptionsFromConfig resolves Options from cfg, its environment overrides and
// the schema defaults. A configured puzzle catalogue is loaded. The logger
// is left unset, see config.NewLogger.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	schema := config.DefaultSchema()
	o := DefaultOptions()

	ints := []struct {
		key string
		dst *int
	}{
		{"grid.height", &o.Height},
		{"grid.width", &o.Width},
		{"food.freshness-window", &o.FreshnessWindow},
		{"emergency.cooldown", &o.EmergencyCooldown},
		{"predicate.cache-size", &o.CacheSize},
		{"run.max-steps", &o.MaxSteps},
		{"run.stall-limit", &o.StallLimit},
	}
	for _, v := range ints {
		n, err := schema.GetInt(cfg, v.key)
		if err != nil {
			return Options{}, err
		}
		*v.dst = n
	}

	mode, err := spatial.ParseSeedMode(schema.GetString(cfg, "spatial.seed-mode"))
	if err != nil {
		return Options{}, fmt.Errorf("config spatial.seed-mode: %w", err)
	}
	o.SeedMode = mode
	seed, err := schema.GetInt(cfg, "spatial.seed")
	if err != nil {
		return Options{}, err
	}
	o.Seed = uint64(seed)

	if o.EmergencyHPFraction, err = schema.GetFloat(cfg, "emergency.hp-fraction"); err != nil {
		return Options{}, err
	}
	for _, v := range []struct {
		key string
		dst *glyph.Set
	}{
		{"spatial.hazards", &o.Hazards},
		{"spatial.sinks", &o.Sinks},
	} {
		if *v.dst, err = glyph.ParseSet(schema.GetString(cfg, v.key)); err != nil {
			return Options{}, fmt.Errorf("config %s: %w", v.key, err)
		}
	}

	o.ZoneMarker = schema.GetString(cfg, "world.zone-marker")
	o.ExploreUntil = schema.GetString(cfg, "explore.until")
	o.EatWhen = schema.GetString(cfg, "eat.when")

	if path := schema.GetString(cfg, "puzzle.catalogue"); path != "" {
		if o.Catalogue, err = sokoban.Load(path); err != nil {
			return Options{}, fmt.Errorf("config puzzle.catalogue: %w", err)
		}
	}

	return o, o.validate()
}
