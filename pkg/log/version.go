package log

// Version of the log package API, checked by pkg/relink at startup.
const (
	Version              = "1.0.0"
	MinCompatibleVersion = "1.0.0"
)
