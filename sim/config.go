package sim

// Config holds the physics parameters of one Simulation. Count is fixed for
// the lifetime of the buffers; a different count needs a new Simulation.
type Config struct {
	Count int

	// Half-extents of the containment box.
	MaxX float32
	MaxY float32
	MaxZ float32

	MinSize float32
	MaxSize float32
	Size0   float32 // leader orb

	Gravity     float32
	Friction    float32 // velocity multiplier per step
	WallBounce  float32 // restitution on boundary contact
	MaxVelocity float32

	// ControlLeader pins orb 0 to the leader target instead of free physics.
	ControlLeader bool
	// FollowCursor shows the leader orb; when false it is drawn at zero scale.
	FollowCursor bool
}

func DefaultConfig() Config {
	return Config{
		Count:        200,
		MaxX:         5,
		MaxY:         5,
		MaxZ:         2,
		MinSize:      0.5,
		MaxSize:      1,
		Size0:        1,
		Gravity:      0.5,
		Friction:     0.9975,
		WallBounce:   0.95,
		MaxVelocity:  0.15,
		FollowCursor: true,
	}
}
