package agent

import (
	"fmt"
	"math"

	"github.com/joeycumines/heur/internal/glyph"
	"github.com/joeycumines/heur/internal/grid"
	"github.com/joeycumines/heur/internal/sokoban"
	"github.com/joeycumines/heur/internal/spatial"
	"github.com/joeycumines/heur/internal/strategy"
	"github.com/joeycumines/heur/internal/world"
)

const (
	openAttempts = 6
	kickAttempts = 10
)

// Search priority weights.
const (
	searchBase          = -20
	searchRepeatPenalty = 10
	searchCorridorBonus = 15
	searchDoorBonus     = 80
	searchStoneBonus    = 40
	searchWallBonus     = 20
)

// target is a strategy procedure's chosen destination.
type target struct {
	p  grid.Point
	ok bool
}

func pick(p *grid.Point) target {
	if p == nil {
		return target{}
	}
	return target{p: *p, ok: true}
}

// Explore reveals the level: it opens an orthogonally adjacent closed door,
// then walks to the nearest frontier cell, one next to unseen stone or
// orthogonally next to a closed door. A non-negative limit ignores frontier
// cells further away than that.
func (a *Agent) Explore(limit int) strategy.Strategy {
	name := "explore"
	if limit >= 0 {
		name = fmt.Sprintf("explore(%d)", limit)
	}
	return strategy.New(name, func() strategy.Procedure {
		var door, dest target
		return strategy.Procedure{
			Probe: func() (bool, error) {
				door = pick(a.adjacentClosedDoor())
				dest = pick(a.frontier(limit))
				return door.ok || dest.ok, nil
			},
			Run: func() (any, error) {
				if door.ok {
					if err := a.forceDoor(door.p); err != nil {
						return nil, err
					}
					dest = pick(a.frontier(limit))
				}
				if !dest.ok {
					return nil, nil
				}
				return nil, a.walk(dest.p)
			},
		}
	})
}

func (a *Agent) adjacentClosedDoor() *grid.Point {
	for _, p := range a.obs.Glyphs.Neighbors(a.Pos(), false) {
		if a.category(p) == glyph.DoorClosed {
			return &p
		}
	}
	return nil
}

func (a *Agent) frontier(limit int) *grid.Point {
	if a.level == nil {
		return nil
	}
	var (
		best  grid.Point
		bestD = spatial.Unreachable
	)
	a.field().Each(func(p grid.Point, d int) {
		switch {
		case d == 0, limit >= 0 && d > limit:
		case bestD != spatial.Unreachable && d >= bestD:
		case a.level.Walkable.At(p) && a.isFrontier(p):
			best, bestD = p, d
		}
	})
	if bestD == spatial.Unreachable {
		return nil
	}
	return &best
}

func (a *Agent) isFrontier(p grid.Point) bool {
	for _, q := range a.obs.Glyphs.Neighbors(p, true) {
		if a.category(q) == glyph.Stone && !a.level.Seen.At(q) {
			return true
		}
	}
	for _, q := range a.obs.Glyphs.Neighbors(p, false) {
		if a.category(q) == glyph.DoorClosed {
			return true
		}
	}
	return false
}

// forceDoor opens the door at p, kicking it when it is locked or stuck.
func (a *Agent) forceDoor(p grid.Point) error {
	opened, err := a.OpenDoor(p)
	if err != nil || opened {
		return err
	}
	if !a.locked() {
		for range openAttempts {
			if opened, err = a.OpenDoor(p); err != nil || opened {
				return err
			}
		}
	}
	for range kickAttempts {
		if a.category(p) != glyph.DoorClosed {
			return nil
		}
		if err := a.Kick(p); err != nil {
			return err
		}
	}
	a.logger.Debug("door resisted", "pos", p)
	return nil
}

// walk follows a shortest path to dest. It stops without error as soon as
// the next cell is no longer walkable or is held by a hazard, or the agent
// left the level.
func (a *Agent) walk(dest grid.Point) error {
	path, err := a.spatial.Path(a.level, a.obs.Glyphs, a.Pos(), dest)
	if err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	key := a.level.Key
	for _, p := range path[1:] {
		if a.level.Key != key || !a.level.Walkable.At(p) || a.opts.Hazards.Has(a.category(p)) {
			return nil
		}
		if err := a.Move(p); err != nil {
			return err
		}
	}
	return nil
}

// GoTo walks to the known reachable cell p.
func (a *Agent) GoTo(p grid.Point) strategy.Strategy {
	return strategy.Func(fmt.Sprintf("goto%v", p),
		func() (bool, error) { return a.level != nil && a.Pos() != p && a.field().Reachable(p), nil },
		func() (any, error) { return nil, a.walk(p) },
	)
}

// Fight engages the nearest reachable hostile: attacks it when adjacent,
// otherwise takes one step towards it. A kill leaves a fresh corpse.
func (a *Agent) Fight() strategy.Strategy {
	return strategy.New("fight", func() strategy.Procedure {
		var foe target
		return strategy.Procedure{
			Probe: func() (bool, error) {
				foe = pick(a.nearest(a.hostiles()))
				return foe.ok, nil
			},
			Run: func() (any, error) {
				path, err := a.spatial.Path(a.level, a.obs.Glyphs, a.Pos(), foe.p)
				if err != nil {
					return nil, fmt.Errorf("agent: %w", err)
				}
				if len(path) > 2 {
					return nil, a.Move(path[1])
				}
				lvl := a.level
				err = a.Attack(foe.p)
				if lvl == a.level && a.category(foe.p) == glyph.Corpse {
					lvl.MarkFresh(foe.p, a.Stats().Time)
				}
				return foe.p, err
			},
		}
	})
}

func (a *Agent) hostiles() []grid.Point {
	pos := a.Pos()
	return a.cells(func(p grid.Point, c glyph.Category) bool {
		return c == glyph.Monster && p != pos
	})
}

// Eat walks to the nearest reachable fresh corpse or food item outside any
// special zone and eats it.
func (a *Agent) Eat() strategy.Strategy {
	return strategy.New("eat", func() strategy.Procedure {
		var meal target
		return strategy.Procedure{
			Probe: func() (bool, error) {
				meal = pick(a.nearest(a.food()))
				return meal.ok, nil
			},
			Run: func() (any, error) {
				if err := a.walk(meal.p); err != nil {
					return nil, err
				}
				if a.Pos() != meal.p || a.level.Special.At(meal.p) {
					return nil, nil
				}
				return meal.p, a.EatHere()
			},
		}
	})
}

func (a *Agent) food() []grid.Point {
	lvl, turn := a.level, a.Stats().Time
	if lvl == nil {
		return nil
	}
	return a.cells(func(p grid.Point, c glyph.Category) bool {
		if lvl.Special.At(p) {
			return false
		}
		return c == glyph.Food || (c == glyph.Corpse && lvl.IsFresh(p, turn, a.opts.FreshnessWindow))
	})
}

// Search walks to the most promising spot for hidden passages and searches
// once. Spots are scored by distance, previous searches there, corridor and
// door bonuses, and the unexplored stone and walls around them.
func (a *Agent) Search() strategy.Strategy {
	return strategy.New("search", func() strategy.Procedure {
		var spot target
		return strategy.Procedure{
			Probe: func() (bool, error) {
				spot = a.searchSpot()
				return spot.ok, nil
			},
			Run: func() (any, error) {
				if err := a.walk(spot.p); err != nil {
					return nil, err
				}
				if a.Pos() != spot.p {
					return nil, nil
				}
				return spot.p, a.SearchHere()
			},
		}
	})
}

func (a *Agent) searchSpot() target {
	lvl := a.level
	if lvl == nil {
		return target{}
	}
	classify := a.model.Classifier().Classify
	remembered := func(g grid.Grid[glyph.Glyph], p grid.Point) glyph.Category {
		if v := g.At(p); v != glyph.None {
			return classify(v)
		}
		return glyph.Category(math.MaxUint8)
	}

	var (
		best     target
		bestPrio = math.Inf(-1)
	)
	a.field().Each(func(p grid.Point, d int) {
		if !lvl.Walkable.At(p) {
			return
		}
		n := float64(lvl.SearchCount.At(p))
		prio := float64(searchBase-d) - n*n*searchRepeatPenalty
		switch c := remembered(lvl.Terrain, p); {
		case c == glyph.Corridor:
			prio += searchCorridorBonus
		case c.Door():
			prio += searchDoorBonus
		}
		for _, q := range lvl.Occupant.Neighbors(p, true) {
			switch remembered(lvl.Occupant, q) {
			case glyph.Stone:
				prio += searchStoneBonus
			case glyph.Wall:
				prio += searchWallBonus
			}
		}
		if prio > bestPrio {
			best, bestPrio = target{p: p, ok: true}, prio
		}
	})
	return best
}

// Descend walks to a known reachable down staircase and takes it.
func (a *Agent) Descend() strategy.Strategy {
	return a.stairs("descend", glyph.StairDown, a.GoDown)
}

// Ascend walks to a known reachable up staircase and takes it.
func (a *Agent) Ascend() strategy.Strategy {
	return a.stairs("ascend", glyph.StairUp, a.GoUp)
}

func (a *Agent) stairs(name string, c glyph.Category, take func() error) strategy.Strategy {
	return strategy.New(name, func() strategy.Procedure {
		var stair target
		return strategy.Procedure{
			Probe: func() (bool, error) {
				if a.level == nil {
					return false, nil
				}
				stair = pick(a.nearest(a.model.Find(a.level, c)))
				return stair.ok, nil
			},
			Run: func() (any, error) {
				if err := a.walk(stair.p); err != nil {
					return nil, err
				}
				if a.Pos() != stair.p {
					return nil, nil
				}
				return nil, take()
			},
		}
	})
}

// Emergency prays when hit points fall below the configured fraction of
// the maximum, at most once per cooldown.
func (a *Agent) Emergency() strategy.Strategy {
	return strategy.Func("emergency",
		func() (bool, error) {
			s := a.Stats()
			if s.MaxHP <= 0 || float64(s.HP) >= a.opts.EmergencyHPFraction*float64(s.MaxHP) {
				return false, nil
			}
			return !a.prayed || s.Time-a.lastPrayer >= a.opts.EmergencyCooldown, nil
		},
		func() (any, error) {
			a.prayed, a.lastPrayer = true, a.Stats().Time
			a.logger.Info("praying", "hp", a.Stats().HP, "maxHp", a.Stats().MaxHP, "turn", a.lastPrayer)
			return nil, a.Pray()
		},
	)
}

// SolvePuzzle replays the catalogue solution of the current puzzle level.
// It intends to act while a hole is in view. Pushes the level shows to be
// done already are skipped, so an interrupted solve resumes where it left
// off.
func (a *Agent) SolvePuzzle() strategy.Strategy {
	return strategy.Func("solve-puzzle",
		func() (bool, error) {
			if a.opts.Catalogue == nil || a.level == nil {
				return false, nil
			}
			return len(a.cells(func(_ grid.Point, c glyph.Category) bool { return c == glyph.Trap })) != 0, nil
		},
		func() (any, error) {
			walls := grid.New[bool](a.level.Terrain.Height(), a.level.Terrain.Width())
			for _, p := range a.model.Find(a.level, glyph.Wall) {
				walls.Set(p, true)
			}
			pz, offset, err := a.opts.Catalogue.Match(walls)
			if err != nil {
				return nil, fmt.Errorf("agent: solve puzzle on %v: %w", a.level.Key, err)
			}
			a.logger.Debug("puzzle matched", "puzzle", pz.Name, "offset", offset)

			sim := pz.Map.Clone()
			for i, mv := range pz.Moves {
				if a.pushPending(sim, offset, mv) {
					stand := offset.Add(mv.Stand())
					if _, _, err := strategy.Run(a.GoTo(stand)); err != nil {
						return nil, err
					}
					if a.Pos() != stand {
						return nil, nil
					}
					if err := a.Move(offset.Add(mv.From())); err != nil {
						return nil, err
					}
				}
				if err := sim.Apply(mv); err != nil {
					return nil, fmt.Errorf("agent: %s move %d: %w: %v", pz.Name, i, sokoban.ErrUnsolvable, err)
				}
			}

			if a.tracker.MarkSolved(a.steps, a.Stats().Time) {
				a.logger.Info("milestone reached", "milestone", a.tracker.Current(), "puzzle", pz.Name)
			}
			return pz.Name, nil
		},
	)
}

// pushPending reports whether mv still has to be carried out: every boulder
// in view inside the puzzle is where the simulation has one, the boulder to
// push is there and the pushing position is reachable.
func (a *Agent) pushPending(sim sokoban.Map, offset grid.Point, mv sokoban.Move) bool {
	for y := range sim.Height() {
		for x := range sim.Width() {
			local := grid.Pt(y, x)
			p := offset.Add(local)
			if a.obs.Glyphs.In(p) && a.category(p) == glyph.Boulder && sim.At(local) != sokoban.Boulder {
				return false
			}
		}
	}
	from := offset.Add(mv.From())
	stand := offset.Add(mv.Stand())
	return a.obs.Glyphs.In(from) && a.category(from) == glyph.Boulder &&
		(a.Pos() == stand || a.field().Reachable(stand))
}

// inPuzzleBranch reports whether the agent is in the puzzle branch.
func (a *Agent) inPuzzleBranch() bool {
	return a.level != nil && a.level.Key.Branch == world.Sokoban
}
