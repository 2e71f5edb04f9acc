package config

// Version is overridden at build time with -ldflags "-X .../config.Version=...".
var Version = "dev"
