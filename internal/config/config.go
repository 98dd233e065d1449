package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every injected value the launch sequence depends on.
type Config struct {
	// Runtime describes the prerequisite runtime and where to install it from.
	Runtime Runtime `yaml:"runtime"`
	// Update describes the release feed and the local server artifact.
	Update Update `yaml:"update"`
	// Launch describes how the server child process is started.
	Launch Launch `yaml:"launch"`
	// History configures the run history database.
	History History `yaml:"history"`
	// MarkerFile is the path of the file guarding against concurrent launchers.
	MarkerFile string `yaml:"marker_file"`
	// HTTPTimeout bounds each feed query and download; zero means no limit.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// Runtime configures the prerequisite checker and installer.
type Runtime struct {
	// Command is the runtime executable name, looked up in PATH first.
	Command string `yaml:"command"`
	// VersionArgs are passed to Command when probing for the runtime.
	VersionArgs []string `yaml:"version_args"`
	// ArchiveURL is the runtime distribution archive (ZIP).
	ArchiveURL string `yaml:"archive_url"`
	// ArchivePath is where the archive is downloaded.
	ArchivePath string `yaml:"archive_path"`
	// InstallDir is where the archive is extracted.
	InstallDir string `yaml:"install_dir"`
	// Install enables the installer; when disabled a failed probe aborts the run.
	Install *bool `yaml:"install"`
	// FailOpen lets the run continue when the installation fails.
	FailOpen *bool `yaml:"fail_open"`
}

// Update configures the update coordinator.
type Update struct {
	// FeedURL returns the latest release descriptor as JSON.
	FeedURL string `yaml:"feed_url"`
	// ArtifactPath is the local server artifact.
	ArtifactPath string `yaml:"artifact_path"`
	// Mode is UpdateModePresence or UpdateModeAlways.
	Mode string `yaml:"mode"`
	// FailOpen lets the run continue when the fetch fails.
	FailOpen *bool `yaml:"fail_open"`
}

// Launch configures the server child process.
type Launch struct {
	// ConfigPath is the key=value launch parameters file.
	ConfigPath string `yaml:"config_path"`
	// ModeFlag is the trailing argument asking the server not to open a console UI.
	ModeFlag string `yaml:"mode_flag"`
}

// History configures the run history.
type History struct {
	// Enabled turns the run history on or off.
	Enabled *bool `yaml:"enabled"`
	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

const (
	// DefaultConfigFilename is the default filename for launcher settings.
	DefaultConfigFilename = "launcher-settings.yaml"

	// DefaultRuntimeCommand is the runtime executable name.
	DefaultRuntimeCommand = "java"

	// DefaultRuntimeArchiveURL is the OpenJDK 17 distribution the installer fetches.
	DefaultRuntimeArchiveURL = "https://download.java.net/java/GA/jdk17.0.2/" +
		"dfd4a8d0985749f896bed50d7138ee7f/8/GPL/openjdk-17.0.2_windows-x64_bin.zip"

	// DefaultRuntimeArchivePath is where the runtime archive is downloaded.
	DefaultRuntimeArchivePath = "jdk-17.zip"

	// DefaultRuntimeInstallDir is where the runtime archive is extracted.
	DefaultRuntimeInstallDir = "jdk-17"

	// DefaultFeedURL is a placeholder; operators point it at their repository.
	DefaultFeedURL = "https://api.github.com/repos/OWNER/REPO/releases/latest"

	// DefaultArtifactFilename is the local server artifact.
	DefaultArtifactFilename = "server.jar"

	// DefaultLaunchConfigFilename is the key=value launch parameters file.
	DefaultLaunchConfigFilename = "launcher.properties"

	// DefaultModeFlag asks the server to run without its graphical console.
	DefaultModeFlag = "nogui"

	// DefaultHistoryFilename is the SQLite run history.
	DefaultHistoryFilename = "launcher-history.db"

	// DefaultMarkerFilename guards against concurrent launchers in one directory.
	DefaultMarkerFilename = "launcher.marker"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// UpdateModePresence treats an existing artifact file as current.
	UpdateModePresence = "presence"

	// UpdateModeAlways queries the release feed on every run.
	UpdateModeAlways = "always"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownUpdateMode is returned for update modes other than presence and always.
	errUnknownUpdateMode = errors.New("unknown update mode")
	// errNegativeTimeout is returned when http_timeout is below zero.
	errNegativeTimeout = errors.New("http timeout must not be negative")
)

// Default returns settings carrying the built-in defaults.
func Default() *Config {
	cfg := new(Config)
	applyDefaults(cfg)

	return cfg
}

// Load reads settings from the provided path, fills omitted values with defaults and validates them.
// A missing file yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults for omitted values and checks the remaining ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	cfg.Update.Mode = strings.ToLower(strings.TrimSpace(cfg.Update.Mode))
	if cfg.Update.Mode != UpdateModePresence && cfg.Update.Mode != UpdateModeAlways {
		return fmt.Errorf("%w: %q", errUnknownUpdateMode, cfg.Update.Mode)
	}

	if cfg.HTTPTimeout < 0 {
		return fmt.Errorf("%w: %s", errNegativeTimeout, cfg.HTTPTimeout)
	}

	if _, err := url.ParseRequestURI(cfg.Update.FeedURL); err != nil {
		return fmt.Errorf("invalid feed URL: %w", err)
	}

	if _, err := url.ParseRequestURI(cfg.Runtime.ArchiveURL); err != nil {
		return fmt.Errorf("invalid runtime archive URL: %w", err)
	}

	return nil
}

// InstallEnabled reports whether a missing runtime should be installed.
func (r *Runtime) InstallEnabled() bool {
	return r.Install == nil || *r.Install
}

// InstallFailOpen reports whether an installation failure lets the run continue.
func (r *Runtime) InstallFailOpen() bool {
	return r.FailOpen == nil || *r.FailOpen
}

// FetchFailOpen reports whether a fetch failure lets the run continue.
func (u *Update) FetchFailOpen() bool {
	return u.FailOpen == nil || *u.FailOpen
}

// IsEnabled reports whether runs are recorded.
func (h *History) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// SetFailOpen sets the fail-open policy of both best-effort stages.
func (c *Config) SetFailOpen(failOpen bool) {
	c.Runtime.FailOpen = &failOpen
	c.Update.FailOpen = &failOpen
}

// applyDefaults fills empty values. Empty slices and nil policy pointers count as omitted.
func applyDefaults(cfg *Config) {
	setDefault(&cfg.Runtime.Command, DefaultRuntimeCommand)
	setDefault(&cfg.Runtime.ArchiveURL, DefaultRuntimeArchiveURL)
	setDefault(&cfg.Runtime.ArchivePath, DefaultRuntimeArchivePath)
	setDefault(&cfg.Runtime.InstallDir, DefaultRuntimeInstallDir)
	setDefault(&cfg.Update.FeedURL, DefaultFeedURL)
	setDefault(&cfg.Update.ArtifactPath, DefaultArtifactFilename)
	setDefault(&cfg.Update.Mode, UpdateModePresence)
	setDefault(&cfg.Launch.ConfigPath, DefaultLaunchConfigFilename)
	setDefault(&cfg.Launch.ModeFlag, DefaultModeFlag)
	setDefault(&cfg.History.Path, DefaultHistoryFilename)
	setDefault(&cfg.MarkerFile, DefaultMarkerFilename)

	if len(cfg.Runtime.VersionArgs) == 0 {
		cfg.Runtime.VersionArgs = []string{"-version"}
	}

	if cfg.Runtime.Install == nil {
		cfg.Runtime.Install = boolPtr(true)
	}

	if cfg.Runtime.FailOpen == nil {
		cfg.Runtime.FailOpen = boolPtr(true)
	}

	if cfg.Update.FailOpen == nil {
		cfg.Update.FailOpen = boolPtr(true)
	}

	if cfg.History.Enabled == nil {
		cfg.History.Enabled = boolPtr(true)
	}
}

func setDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

func boolPtr(v bool) *bool {
	return &v
}
