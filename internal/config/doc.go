// Package config defines the launcher settings and provides helpers to load,
// validate and save them in YAML format.
//
// Settings replace every path and URL the launch sequence would otherwise hard-code:
// the runtime distribution, the release feed, the artifact and config locations, and
// the fail-open policy of the best-effort stages. A missing settings file means defaults.
package config
