package version

// Build metadata, injected with -ldflags "-X sentiment-engine/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// String renders the build metadata on a single line.
func String() string {
	return Version + " (" + Commit + ", built " + BuildDate + ")"
}
