package launchconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/magiconair/properties"

	"github.com/oshokin/server-launcher/internal/config"
	"github.com/oshokin/server-launcher/internal/logger"
)

const (
	// KeyMaxHeap is the maximum heap size in megabytes.
	KeyMaxHeap = "xmx"
	// KeyInitialHeap is the initial heap size in megabytes.
	KeyInitialHeap = "xms"

	// DefaultMaxHeap is used when xmx is absent.
	DefaultMaxHeap = "4096"
	// DefaultInitialHeap is used when xms is absent.
	DefaultInitialHeap = "1024"

	// header is written as a comment on top of a saved file.
	header = "# Launcher Config\n"
)

var (
	// ErrNotFound is returned by Load when the file does not exist.
	ErrNotFound = errors.New("launch config not found")
	// errInvalidHeap is returned when a heap size is not a positive number of megabytes.
	errInvalidHeap = errors.New("heap size must be a positive integer of megabytes")
	// errConfigIsNotSet is returned when a nil config is saved.
	errConfigIsNotSet = errors.New("launch config is not set")
)

// LaunchConfig is an ordered mapping of launch option names to values.
type LaunchConfig struct {
	props *properties.Properties
}

// New returns an empty LaunchConfig.
func New() *LaunchConfig {
	props := properties.NewProperties()
	props.DisableExpansion = true

	return &LaunchConfig{props: props}
}

// Defaults returns a LaunchConfig holding exactly the default heap sizes.
func Defaults() *LaunchConfig {
	c := New()

	// Neither call can fail with expansion disabled.
	_ = c.Set(KeyMaxHeap, DefaultMaxHeap)
	_ = c.Set(KeyInitialHeap, DefaultInitialHeap)

	return c
}

// Get returns the value stored under key.
func (c *LaunchConfig) Get(key string) (string, bool) {
	return c.props.Get(key)
}

// Set stores value under key, keeping the key's original position when it already exists.
func (c *LaunchConfig) Set(key, value string) error {
	if _, _, err := c.props.Set(key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return nil
}

// Keys returns the keys in file order.
func (c *LaunchConfig) Keys() []string {
	return c.props.Keys()
}

// Map returns a copy of the key-value pairs.
func (c *LaunchConfig) Map() map[string]string {
	return c.props.Map()
}

// MaxHeap returns xmx, or DefaultMaxHeap when it is absent.
func (c *LaunchConfig) MaxHeap() string {
	return c.valueOr(KeyMaxHeap, DefaultMaxHeap)
}

// InitialHeap returns xms, or DefaultInitialHeap when it is absent.
func (c *LaunchConfig) InitialHeap() string {
	return c.valueOr(KeyInitialHeap, DefaultInitialHeap)
}

// Validate checks the recognised keys. Unknown keys are never inspected.
func (c *LaunchConfig) Validate() error {
	for _, key := range []string{KeyMaxHeap, KeyInitialHeap} {
		value, ok := c.Get(key)
		if !ok {
			continue
		}

		megabytes, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || megabytes <= 0 {
			return fmt.Errorf("%s=%q: %w", key, value, errInvalidHeap)
		}
	}

	return nil
}

func (c *LaunchConfig) valueOr(key, fallback string) string {
	if value, ok := c.Get(key); ok {
		return strings.TrimSpace(value)
	}

	return fallback
}

// Load parses the file at path. A missing file yields ErrNotFound.
func Load(path string) (*LaunchConfig, error) {
	path = filepath.Clean(path)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("stat launch config: %w", err)
	}

	loader := &properties.Loader{
		Encoding:         properties.UTF8,
		DisableExpansion: true,
	}

	props, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse launch config: %w", err)
	}

	cfg := &LaunchConfig{props: props}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path with a comment header, replacing any existing file.
func Save(path string, cfg *LaunchConfig) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	var buf bytes.Buffer

	buf.WriteString(header)

	if _, err := cfg.props.Write(&buf, properties.UTF8); err != nil {
		return fmt.Errorf("encode launch config: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), buf.Bytes(), config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write launch config: %w", err)
	}

	return nil
}

// Loader is the configuration stage of the launch sequence.
type Loader struct {
	path string
}

// NewLoader returns a Loader bound to the file at path.
func NewLoader(path string) *Loader {
	if path == "" {
		path = config.DefaultLaunchConfigFilename
	}

	return &Loader{path: path}
}

// LoadConfig returns the persisted launch parameters. Only an absent file is replaced
// by defaults; an unreadable or malformed one is an error.
func (l *Loader) LoadConfig(ctx context.Context) (*LaunchConfig, error) {
	cfg, err := Load(l.path)
	if err == nil {
		logger.InfoKV(ctx, "Launch config loaded", "path", l.path, "keys", len(cfg.Keys()))

		return cfg, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	cfg = Defaults()
	if err = Save(l.path, cfg); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Launch config created with defaults", "path", l.path)

	return cfg, nil
}
