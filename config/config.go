package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"instaplan/models"
)

const (
	DefaultPath     = "config/instaplan.toml"
	DefaultPort     = 3000
	DefaultPageSize = 100
	DefaultTimeout  = 30 * time.Second
)

// TomlServer holds the HTTP boundary settings
type TomlServer struct {
	Port           int      `toml:"port,omitempty"`
	AllowedOrigins []string `toml:"allowed_origins,omitempty"`
}

// TomlNotion holds the upstream API settings
type TomlNotion struct {
	BaseUrl      string        `toml:"base_url,omitempty"`
	Version      string        `toml:"version,omitempty"`
	SortProperty string        `toml:"sort_property,omitempty"`
	PageSize     int           `toml:"page_size,omitempty"`
	Timeout      time.Duration `toml:"timeout,omitempty"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	// Credential is used by every source without its own
	Credential string          `toml:"credential,omitempty"`
	Server     TomlServer      `toml:"server"`
	Notion     TomlNotion      `toml:"notion"`
	Sources    []models.Source `toml:"sources"`
}

// Default returns an empty configuration with defaults applied
func Default() *TomlConfig {
	config := &TomlConfig{}
	config.applyDefaults()
	return config
}

func LoadConfig(path string) (*TomlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config TomlConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// LoadOrDefault is LoadConfig, except that a missing file yields Default()
func LoadOrDefault(path string) (*TomlConfig, error) {
	config, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

// SaveConfig writes the configuration, creating the parent directory
func SaveConfig(path string, config *TomlConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("error encoding config file: %w", err)
	}
	return nil
}

func (c *TomlConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Notion.PageSize == 0 {
		c.Notion.PageSize = DefaultPageSize
	}
	if c.Notion.Timeout == 0 {
		c.Notion.Timeout = DefaultTimeout
	}
}

// ResolvedSources returns the sources with the default credential filled in
// and container ids normalized. Ids that do not normalize are kept as written
// and rejected when the source is validated.
func (c *TomlConfig) ResolvedSources() []models.Source {
	sources := make([]models.Source, 0, len(c.Sources))
	for _, src := range c.Sources {
		if src.Credential == "" {
			src.Credential = c.Credential
		}
		if id, err := models.NormalizeContainerId(src.ContainerId); err == nil {
			src.ContainerId = id
		}
		sources = append(sources, src)
	}
	return sources
}

// FindSource looks a source up by id or label
func (c *TomlConfig) FindSource(name string) (models.Source, bool) {
	for _, src := range c.ResolvedSources() {
		if src.Key() == name || (src.Label != "" && strings.EqualFold(src.Label, name)) {
			return src, true
		}
	}
	return models.Source{}, false
}

// AddSource validates and appends a source. Ids must be unique.
func (c *TomlConfig) AddSource(src models.Source) error {
	id, err := models.NormalizeContainerId(src.ContainerId)
	if err != nil {
		return err
	}
	src.ContainerId = id
	if src.Id == "" {
		src.Id = id
	}

	for _, existing := range c.Sources {
		if existing.Key() == src.Key() {
			return &models.ValidationError{Field: "id", Message: fmt.Sprintf("source %q already exists", src.Key())}
		}
	}

	credential := src.Credential
	if credential == "" {
		credential = c.Credential
	}
	if err := models.ValidateCredential(credential); err != nil {
		return err
	}

	c.Sources = append(c.Sources, src)
	return nil
}
