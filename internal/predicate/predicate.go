// Package predicate compiles configurable boolean expressions over the
// agent's status vector.
package predicate

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/joeycumines/heur/internal/env"
)

// Defaults for the configurable gates.
const (
	DefaultExploreUntil = "score >= 950 && hp >= 0.9 * maxHp"
	DefaultEatWhen      = "time % 3 == 0 && hunger >= 1"
)

// Env is the variable environment visible to expressions.
type Env struct {
	Score  int `expr:"score"`
	HP     int `expr:"hp"`
	MaxHP  int `expr:"maxHp"`
	Time   int `expr:"time"`
	Hunger int `expr:"hunger"`
	Depth  int `expr:"depth"`
	Branch int `expr:"branch"`
	Level  int `expr:"level"`
	Gold   int `expr:"gold"`
	XL     int `expr:"xl"`
}

// EnvOf maps stats into an expression environment.
func EnvOf(s env.Stats) Env {
	return Env{
		Score:  s.Score,
		HP:     s.HP,
		MaxHP:  s.MaxHP,
		Time:   s.Time,
		Hunger: s.Hunger,
		Depth:  s.Depth,
		Branch: s.Branch,
		Level:  s.Level,
		Gold:   s.Gold,
		XL:     s.XL,
	}
}

// Predicate is a compiled boolean expression.
type Predicate struct {
	expression string
	program    *vm.Program
	logger     *slog.Logger
}

// Compile type-checks expression, reusing a cached program when present.
// A nil cache disables caching.
func Compile(cache *Cache, expression string) (*Predicate, error) {
	if expression == "" {
		return nil, fmt.Errorf("predicate: empty expression")
	}
	if cache != nil {
		if program, ok := cache.Get(expression); ok {
			return &Predicate{expression: expression, program: program}, nil
		}
	}
	program, err := expr.Compile(expression, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("predicate: compile %q: %w", expression, err)
	}
	if cache != nil {
		cache.Put(expression, program)
	}
	return &Predicate{expression: expression, program: program}, nil
}

// MustCompile is Compile that panics on error.
func MustCompile(cache *Cache, expression string) *Predicate {
	p, err := Compile(cache, expression)
	if err != nil {
		panic(err)
	}
	return p
}

// WithLogger returns a copy of p that reports evaluation errors to logger.
func (p *Predicate) WithLogger(logger *slog.Logger) *Predicate {
	c := *p
	c.logger = logger
	return &c
}

func (p *Predicate) String() string { return p.expression }

// Eval evaluates the predicate. Evaluation errors are logged and yield
// false.
func (p *Predicate) Eval(s env.Stats) bool {
	result, err := expr.Run(p.program, EnvOf(s))
	if err != nil {
		p.log().Error("predicate evaluation failed",
			"expression", p.expression,
			"error", err)
		return false
	}
	b, ok := result.(bool)
	if !ok {
		p.log().Warn("predicate returned non-boolean result",
			"expression", p.expression,
			"resultType", fmt.Sprintf("%T", result))
	}
	return b
}

func (p *Predicate) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}
