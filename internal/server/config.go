package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/iwvelando/finance-quests/internal/config"
	"github.com/iwvelando/finance-quests/pkg/constants"
	"gopkg.in/yaml.v3"
)

// Config defines runtime parameters for the HTTP server.
type Config struct {
	Address       string               `yaml:"address"`
	MaxBodySize   string               `yaml:"maxBodySize"`
	MaxActiveRuns int                  `yaml:"maxActiveRuns"`
	IdleTimeout   string               `yaml:"idleTimeout"`
	SweepSchedule string               `yaml:"sweepSchedule"`
	Logging       config.LoggingConfig `yaml:"logging"`
	bodySizeBytes int64
	idleTimeout   time.Duration
}

// LoadConfig loads the server configuration from YAML. If the file does not exist,
// defaults are returned without error.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Address:       constants.DefaultServerAddress,
		MaxBodySize:   fmt.Sprintf("%d", constants.DefaultMaxBodySizeBytes),
		MaxActiveRuns: constants.DefaultMaxActiveRuns,
		IdleTimeout:   constants.DefaultIdleTimeout,
		SweepSchedule: constants.DefaultSweepSchedule,
		Logging:       config.LoggingConfig{},
		bodySizeBytes: constants.DefaultMaxBodySizeBytes,
	}

	if path == "" {
		return cfg, cfg.normalize()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, cfg.normalize()
		}
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BodySizeBytes returns the configured request body limit in bytes.
func (c *Config) BodySizeBytes() int64 {
	return c.bodySizeBytes
}

// IdleTimeoutDuration returns how long an untouched run stays open.
func (c *Config) IdleTimeoutDuration() time.Duration {
	return c.idleTimeout
}

// SetBodySizeBytes overrides the configured request body limit.
func (c *Config) SetBodySizeBytes(size int64) {
	if size > 0 {
		c.bodySizeBytes = size
		c.MaxBodySize = fmt.Sprintf("%d", size)
	}
}

// HandlerOptions converts the configuration into handler options.
func (c *Config) HandlerOptions(version string) Options {
	return Options{
		MaxBodySize: c.bodySizeBytes,
		MaxRuns:     c.MaxActiveRuns,
		Version:     version,
	}
}

func (c *Config) normalize() error {
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}
	if c.MaxActiveRuns <= 0 {
		c.MaxActiveRuns = constants.DefaultMaxActiveRuns
	}
	if strings.TrimSpace(c.SweepSchedule) == "" {
		c.SweepSchedule = constants.DefaultSweepSchedule
	}
	if strings.TrimSpace(c.IdleTimeout) == "" {
		c.IdleTimeout = constants.DefaultIdleTimeout
	}
	idle, err := time.ParseDuration(strings.TrimSpace(c.IdleTimeout))
	if err != nil {
		return fmt.Errorf("invalid idleTimeout %q: %w", c.IdleTimeout, err)
	}
	if idle <= 0 {
		return fmt.Errorf("idleTimeout must be positive, got %s", c.IdleTimeout)
	}
	c.idleTimeout = idle

	sizeStr := strings.TrimSpace(c.MaxBodySize)
	if sizeStr == "" {
		c.bodySizeBytes = constants.DefaultMaxBodySizeBytes
		c.MaxBodySize = fmt.Sprintf("%d", constants.DefaultMaxBodySizeBytes)
		return nil
	}

	bytes, err := ParseSize(sizeStr)
	if err != nil {
		return err
	}
	if bytes <= 0 {
		bytes = constants.DefaultMaxBodySizeBytes
	}
	c.bodySizeBytes = bytes
	return nil
}

// ParseSize converts a human-friendly byte string (e.g., "256K", "10M") into bytes.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxBodySizeBytes, nil
	}

	upper := strings.ToUpper(trimmed)
	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}
	numPart := strings.TrimSpace(upper[:idx])
	unitPart := strings.TrimSpace(upper[idx:])

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var multiplier int64
	switch unitPart {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported size unit %q", unitPart)
	}

	result := n * multiplier
	if result < 0 {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return result, nil
}
