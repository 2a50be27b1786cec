package buildconfig

// Set with -ldflags "-X github.com/mpaguilar/msa-toy/internal/buildconfig.version=..."
var (
	version = "dev"
	commit  = "unknown"
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}

// String is the one-line form printed by msa --version.
func String() string {
	return version + " (" + commit + ")"
}

// VersionInfo is reported by the stats endpoint.
func VersionInfo() map[string]string {
	return map[string]string{
		"version": version,
		"commit":  commit,
	}
}
