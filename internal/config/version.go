package config

// Build information, overridable at link time:
//
//	go build -ldflags "-X github.com/draxon/pulse/internal/config.Version=1.2.0"
var (
	Version   = "1.0.0"
	BuildDate = "Nov 2024"
)
