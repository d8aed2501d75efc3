// Package config loads, normalizes, and validates pocketepub configuration.
//
// Values come from repository defaults, optionally overlaid by a TOML file
// (~/.config/pocketepub/config.toml or ./pocketepub.toml). Command-line flags
// are applied by the caller on top of the loaded Config.
package config
