package sim

// seqRand replays a fixed sequence of values, wrapping around.
type seqRand struct {
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

func newTestDrop(x, y, size float64) *Drop {
	return &Drop{
		Position: Vec2{X: x, Y: y},
		Size:     size,
		Gravity:  DefaultGravity,
		MaxSpeed: DefaultMaxSpeed,
		Opacity:  0.8,
		Color:    DefaultDropColor,
		affected: make(map[int]struct{}),
	}
}

func newTestSim(width, height float64, rng Random) *Simulation {
	s, err := New(DefaultConfig(), width, height, rng)
	if err != nil {
		panic(err)
	}
	return s
}

func testFactory(rng Random) *Factory {
	return &Factory{Rand: rng, Gravity: DefaultGravity, MaxSpeed: DefaultMaxSpeed}
}
