// Package version exposes build metadata, set at link time.
package version

var (
	Version = "1.0.0"
	Commit  = "unknown"
)

// Resolve returns the version string, with the commit appended when it
// is known.
func Resolve() string {
	return resolve(Version, Commit)
}

func resolve(version, commit string) string {
	if version == "" {
		version = "0.0.0"
	}
	if commit == "" || commit == "unknown" {
		return version
	}
	return version + "+" + commit
}
