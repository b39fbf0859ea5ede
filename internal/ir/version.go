package ir

// Version constants for reports and the engine.
const (
	// ReportVersion is the attempt-report schema version.
	ReportVersion = "1"

	// EngineVersion is the turtle engine version.
	EngineVersion = "0.1.0"
)
