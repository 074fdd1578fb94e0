package shutdown

// Version information for the shutdown module.
const (
	// Version is the current version of the shutdown module.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)
