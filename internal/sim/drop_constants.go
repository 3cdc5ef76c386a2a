package sim

// Physics constants for the drop simulation. Units are canvas pixels and
// frames (one Tick is one frame).
const (
	DefaultGravity  = 0.15
	DefaultMaxSpeed = 8.0
	HorizontalDrag  = 0.98

	MinSpawnSize   = 12.0
	SpawnSizeRange = 8.0
	ClickDropSize  = 15.0
	SpawnY         = -20.0

	MinOpacity   = 0.6
	OpacityRange = 0.4

	MinBounceForce = 4.0
	MaxBounceForce = 8.0

	SplitRatio       = 0.7
	CurvedDeviation  = 0.3
	EscapeMargin     = 2.0 // added to the radius when pushing a drop off a surface
	ContactTolerance = 5.0
	CullMargin       = 50.0

	DefaultMinDropSize    = 3.0
	DefaultDropIntervalMs = 200
)

// cos45 == sin45.
const diag45 = 0.7071067811865476
