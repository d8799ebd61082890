// Package config provides configuration management for FaceWatch.
// It loads configuration from YAML files with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all FaceWatch configuration.
type Config struct {
	Camera      CameraConfig      `yaml:"camera"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Faces       FacesConfig       `yaml:"faces"`
	Log         LogConfig         `yaml:"log"`
	Cache       CacheConfig       `yaml:"cache"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// CameraConfig holds capture settings.
type CameraConfig struct {
	Index  int `yaml:"index"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

// RecognitionConfig holds matching settings.
type RecognitionConfig struct {
	Tolerance        float64 `yaml:"tolerance"`
	ModelPath        string  `yaml:"model_path"`
	AveragePerPerson bool    `yaml:"average_per_person"`
}

// FacesConfig describes the labeled photo directory.
type FacesConfig struct {
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions"`
}

// LogConfig holds session event log settings.
type LogConfig struct {
	Dir string `yaml:"dir"`
}

// CacheConfig holds database snapshot settings.
type CacheConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Dir               string `yaml:"dir"`
	EncryptionEnabled bool   `yaml:"encryption_enabled"`
}

// LoggingConfig holds diagnostic logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local/share/facewatch")
	return &Config{
		Camera: CameraConfig{
			Index:  0,
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Recognition: RecognitionConfig{
			Tolerance:        0.6,
			ModelPath:        filepath.Join(dataDir, "models"),
			AveragePerPerson: false,
		},
		Faces: FacesConfig{
			Dir:        "data/faces",
			Extensions: []string{".jpg", ".jpeg", ".png", ".bmp", ".gif"},
		},
		Log: LogConfig{
			Dir: "logs",
		},
		Cache: CacheConfig{
			Enabled:           false,
			Dir:               filepath.Join(dataDir, "cache"),
			EncryptionEnabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load loads configuration from the specified file.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, err
	}

	return config, nil
}

// LoadDefault tries the system config, then the user config, then
// falls back to defaults.
func LoadDefault() (*Config, error) {
	if _, err := os.Stat("/etc/facewatch/facewatch.yaml"); err == nil {
		return Load("/etc/facewatch/facewatch.yaml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}

	userConfig := filepath.Join(homeDir, ".config/facewatch/facewatch.yaml")
	if _, err := os.Stat(userConfig); err == nil {
		return Load(userConfig)
	}

	return DefaultConfig(), nil
}

// ExpandPath expands ~ and environment variables in a path.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// ExpandPaths expands all paths in the configuration.
func (c *Config) ExpandPaths() {
	c.Recognition.ModelPath = ExpandPath(c.Recognition.ModelPath)
	c.Faces.Dir = ExpandPath(c.Faces.Dir)
	c.Log.Dir = ExpandPath(c.Log.Dir)
	c.Cache.Dir = ExpandPath(c.Cache.Dir)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Camera.Index < 0 {
		return fmt.Errorf("camera index must not be negative, got %d", c.Camera.Index)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("invalid camera resolution: %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("invalid camera FPS: %d", c.Camera.FPS)
	}

	if c.Recognition.Tolerance <= 0 || c.Recognition.Tolerance > 1 {
		return fmt.Errorf("tolerance must be in (0, 1], got %f", c.Recognition.Tolerance)
	}

	if c.Faces.Dir == "" {
		return fmt.Errorf("faces directory must not be empty")
	}
	if len(c.Faces.Extensions) == 0 {
		return fmt.Errorf("at least one image extension is required")
	}
	for _, ext := range c.Faces.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("image extension must start with a dot: %s", ext)
		}
	}

	if c.Log.Dir == "" {
		return fmt.Errorf("log directory must not be empty")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// EnsureDirectories creates the directories the process writes to.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Log.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := os.MkdirAll(c.Recognition.ModelPath, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}
	if c.Cache.Enabled {
		if err := os.MkdirAll(c.Cache.Dir, 0700); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	if c.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.Logging.File), 0755); err != nil {
			return fmt.Errorf("failed to create log file directory: %w", err)
		}
	}
	return nil
}
