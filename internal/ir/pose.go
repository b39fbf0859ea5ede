package ir

// Pose is the agent's position and heading.
// Heading is in degrees clockwise from north (up), in [0,360).
type Pose struct {
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Heading float64 `json:"heading" yaml:"heading"`
}

// DefaultPose is the canvas centre facing north on the standard 400x400 canvas.
var DefaultPose = Pose{X: 200, Y: 200, Heading: 0}
