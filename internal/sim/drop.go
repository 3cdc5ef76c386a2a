package sim

import (
	"math/rand"
	"sort"
)

// Random is the only source of nondeterminism in the simulation. *rand.Rand
// satisfies it; tests substitute fixed sequences.
type Random interface {
	Float64() float64 // in [0, 1)
}

// NewRandom returns a seeded source suitable for a Simulation.
func NewRandom(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Palette is the three display tokens a drop is drawn with. The simulation
// never interprets them.
type Palette struct {
	Main      string `json:"main"`
	Shadow    string `json:"shadow"`
	Highlight string `json:"highlight"`
}

// Drop is a single falling particle.
type Drop struct {
	Position         Vec2    `json:"position"`
	Velocity         Vec2    `json:"velocity"`
	Size             float64 `json:"size"`
	Gravity          float64 `json:"gravity"`
	MaxSpeed         float64 `json:"max_speed"`
	Opacity          float64 `json:"opacity"`
	HasBouncedBottom bool    `json:"has_bounced_bottom"`
	Color            Palette `json:"color"`

	affected map[int]struct{}
}

// HasAffected reports whether the drop already collided with obstacle id.
func (d *Drop) HasAffected(id int) bool {
	_, ok := d.affected[id]
	return ok
}

// AffectedIDs returns the collided obstacle IDs in ascending order.
func (d *Drop) AffectedIDs() []int {
	ids := make([]int, 0, len(d.affected))
	for id := range d.affected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// withAffected returns a copy of the drop's affected set extended by ids.
func (d *Drop) withAffected(ids ...int) map[int]struct{} {
	out := make(map[int]struct{}, len(d.affected)+len(ids))
	for id := range d.affected {
		out[id] = struct{}{}
	}
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// DropView is the read-only slice of drop state a renderer needs.
type DropView struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Size    float64 `json:"size"`
	Opacity float64 `json:"opacity"`
	Color   Palette `json:"color"`
}

func (d *Drop) View() DropView {
	return DropView{X: d.Position.X, Y: d.Position.Y, Size: d.Size, Opacity: d.Opacity, Color: d.Color}
}

// Factory builds drops with defaulted and randomized fields.
type Factory struct {
	Rand     Random
	Gravity  float64
	MaxSpeed float64
}

func (f *Factory) newDrop(pos, vel Vec2, size float64, color Palette) *Drop {
	return &Drop{
		Position: pos,
		Velocity: vel,
		Size:     size,
		Gravity:  f.Gravity,
		MaxSpeed: f.MaxSpeed,
		Opacity:  MinOpacity + f.Rand.Float64()*OpacityRange,
		Color:    color,
		affected: make(map[int]struct{}),
	}
}

// Ambient creates a drop at a random x across width, just above the top edge,
// with a random size in [12, 20).
func (f *Factory) Ambient(width float64, color Palette) *Drop {
	x := f.Rand.Float64() * width
	size := MinSpawnSize + f.Rand.Float64()*SpawnSizeRange
	return f.newDrop(Vec2{X: x, Y: SpawnY}, Vec2{}, size, color)
}

// At creates a resting drop of the given size at p.
func (f *Factory) At(p Vec2, size float64, color Palette) *Drop {
	return f.newDrop(p, Vec2{}, size, color)
}

// Child creates one half of a split. The child owns its own copy of affected.
func (f *Factory) Child(parent *Drop, pos, vel Vec2, affected map[int]struct{}, bouncedBottom bool) *Drop {
	d := f.newDrop(pos, vel, parent.Size*SplitRatio, parent.Color)
	for id := range affected {
		d.affected[id] = struct{}{}
	}
	d.HasBouncedBottom = bouncedBottom
	return d
}
