package ir

// Version constants for the tree encoding and engine.
const (
	// IRVersion is the tree encoding version.
	IRVersion = "1"

	// EngineVersion is the hdlreplay engine version.
	EngineVersion = "0.1.0"
)
