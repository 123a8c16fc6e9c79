package ir

// Version constants for the description schema and engine.
const (
	// IRVersion is the graph description schema version.
	IRVersion = "1"

	// EngineVersion is the ability engine version.
	EngineVersion = "0.1.0"
)
