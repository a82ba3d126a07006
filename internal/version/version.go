package version

// Build information set by ldflags
var (
	Version = "dev"     // Set by goreleaser: -X github.com/dotty-sh/dotty/internal/version.Version={{.Version}}
	Commit  = "unknown" // Set by goreleaser: -X github.com/dotty-sh/dotty/internal/version.Commit={{.Commit}}
	Date    = "unknown" // Set by goreleaser: -X github.com/dotty-sh/dotty/internal/version.Date={{.Date}}
)
