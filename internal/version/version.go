package version

// Tag is the version tag injected at build time via ldflags:
// go build -ldflags "-X github.com/nholik/goact-stack/internal/version.Tag=v1.0.0"
var Tag = "dev"
