package physics

const (
	DefaultGravityZ   = -24.82
	DefaultIterations = 10

	DefaultFriction    = 0.3
	DefaultRestitution = 0.0

	// Velocities below these magnitudes are snapped to zero after a step.
	MinimumResidualHorizontalSpeed = 1e-4
	MinimumResidualVerticalSpeed   = 1e-4
	CollisionAxisTolerance         = 1e-9

	contactPushMaxPerPair = 0.5
)
