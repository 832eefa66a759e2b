package physics

// Material holds the surface coefficients used when two bodies touch.
type Material struct {
	KineticFriction float32
	StaticFriction  float32
	Restitution     float32
}

func DefaultMaterial() Material {
	return Material{
		KineticFriction: 0.3,
		StaticFriction:  0.6,
		Restitution:     0,
	}
}

// MaterialMixing selects how the coefficients of two materials combine.
type MaterialMixing int

const (
	MixAverage MaterialMixing = iota
	MixMin
	MixMax
)

func (m MaterialMixing) String() string {
	switch m {
	case MixMin:
		return "min"
	case MixMax:
		return "max"
	}
	return "average"
}

func (m MaterialMixing) mix(a, b float32) float32 {
	switch m {
	case MixMin:
		return min(a, b)
	case MixMax:
		return max(a, b)
	}
	return (a + b) * 0.5
}

// ContactSettings tunes contact creation and the contact solver.
type ContactSettings struct {
	MaximumBias        float32
	BiasFactor         float32
	MinVelocity        float32
	AllowedPenetration float32
	BreakThreshold     float32
	MaterialMixing     MaterialMixing
}

func DefaultContactSettings() ContactSettings {
	return ContactSettings{
		MaximumBias:        10,
		BiasFactor:         0.25,
		MinVelocity:        0.001,
		AllowedPenetration: 0.01,
		BreakThreshold:     0.01,
		MaterialMixing:     MixAverage,
	}
}
