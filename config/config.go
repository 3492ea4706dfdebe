package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel int `yaml:"log_level"`

	Library  LibraryConfig  `yaml:"library"`
	Metadata MetadataConfig `yaml:"metadata"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Cache    CacheConfig    `yaml:"cache"`
	Debug    DebugConfig    `yaml:"debug"`
}

type LibraryConfig struct {
	// Path of the sqlite database file, ":memory:" for a volatile library
	DatabasePath string `yaml:"database_path"`

	// Enables the extra metadata fields like mood
	ExtraMetadata bool `yaml:"extra_metadata"`
}

type MetadataConfig struct {
	// Source of file tags: "id3" or "sidecar"
	Source string `yaml:"source"`

	// Write color, BPM lock, cues and beat grid into the file tags
	ExportEmbeddedTags bool `yaml:"export_embedded_tags"`
}

type StorageConfig struct {
	// Type of storage for sidecar documents and cover images: "local" or "gcs"
	Type string `yaml:"type"`

	// Local storage options
	OutputDir string `yaml:"output_dir"`

	// GCS storage options
	Bucket          string `yaml:"bucket"`
	ObjectPrefix    string `yaml:"object_prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

type ServerConfig struct {
	Port string `yaml:"port"`

	// Maximum number of export jobs running at the same time
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`
}

type CacheConfig struct {
	// How long an unused track stays loaded
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

type DebugConfig struct {
	// Panic on contract violations instead of logging them
	StrictAssertions bool `yaml:"strict_assertions"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config *Config

	// Unmarshal the YAML data into the struct
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	config.applyDefaults()
	return config, nil
}

// LoadOrDefault loads the config file at path, or returns the defaults if
// there is none.
func LoadOrDefault(path string) (*Config, error) {
	config, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

// Default returns the configuration used without a config file.
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.Library.DatabasePath == "" {
		c.Library.DatabasePath = "library.db"
	}

	if c.Metadata.Source == "" {
		c.Metadata.Source = "id3"
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}

	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "output"
	}

	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}

	if c.Server.MaxConcurrentJobs <= 0 {
		c.Server.MaxConcurrentJobs = 4
	}

	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 10 * time.Minute
	}

	if c.Cache.CleanupInterval <= 0 {
		c.Cache.CleanupInterval = time.Minute
	}
}
