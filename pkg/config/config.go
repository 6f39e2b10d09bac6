// Package config loads otmize settings from a YAML file, the environment and
// built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete otmize configuration.
type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	Relations RelationsConfig `yaml:"relations"`
	Jbovlaste JbovlasteConfig `yaml:"jbovlaste"`
	Log       LogConfig       `yaml:"log"`
}

// PathsConfig holds the working directories of a conversion run.
type PathsConfig struct {
	XMLDir    string `yaml:"xml_dir"    env:"OTMIZE_XML_DIR"    env-default:"xml"`
	JSONDir   string `yaml:"json_dir"   env:"OTMIZE_JSON_DIR"   env-default:"json"`
	OutputDir string `yaml:"output_dir" env:"OTMIZE_OUTPUT_DIR" env-default:"otm-json"`
	ZipDir    string `yaml:"zip_dir"    env:"OTMIZE_ZIP_DIR"    env-default:"zip"`
}

// RelationsConfig tunes the relation discovery pass.
type RelationsConfig struct {
	// Threshold is the word count at which the parallel strategy kicks in.
	Threshold int `yaml:"threshold"  env:"OTMIZE_RELATIONS_THRESHOLD"  env-default:"6000"`
	// ChunkSize is the number of contiguous words handed to one worker.
	ChunkSize int `yaml:"chunk_size" env:"OTMIZE_RELATIONS_CHUNK_SIZE" env-default:"2000"`
	// Workers is the pool size; 0 means one worker per CPU.
	Workers int `yaml:"workers" env:"OTMIZE_RELATIONS_WORKERS" env-default:"0"`
	// ChunkTimeout bounds a single chunk; 0 disables the limit.
	ChunkTimeout time.Duration `yaml:"chunk_timeout" env:"OTMIZE_RELATIONS_CHUNK_TIMEOUT" env-default:"0s"`
}

// JbovlasteConfig holds the export endpoint and credentials.
type JbovlasteConfig struct {
	BaseURL  string        `yaml:"base_url" env:"OTMIZE_JBOVLASTE_URL"      env-default:"http://jbovlaste.lojban.org"`
	Username string        `yaml:"username" env:"OTMIZE_JBOVLASTE_USERNAME"`
	Password string        `yaml:"password" env:"OTMIZE_JBOVLASTE_PASSWORD"`
	Timeout  time.Duration `yaml:"timeout"  env:"OTMIZE_JBOVLASTE_TIMEOUT"  env-default:"2m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"OTMIZE_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"OTMIZE_LOG_FORMAT" env-default:"text"`
}

// Load reads configuration from path (when non-empty) and the environment.
// Priority: ENV > YAML > defaults (via env-default tags).
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Relations.Threshold < 0 {
		errs = append(errs, fmt.Errorf("relations.threshold must not be negative, got %d", c.Relations.Threshold))
	}
	if c.Relations.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("relations.chunk_size must be positive, got %d", c.Relations.ChunkSize))
	}
	if c.Relations.Workers < 0 {
		errs = append(errs, fmt.Errorf("relations.workers must not be negative, got %d", c.Relations.Workers))
	}
	if c.Relations.ChunkTimeout < 0 {
		errs = append(errs, errors.New("relations.chunk_timeout must not be negative"))
	}
	if c.Paths.OutputDir == "" {
		errs = append(errs, errors.New("paths.output_dir is required"))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Dump writes cfg as YAML. The password is masked.
func Dump(w io.Writer, cfg *Config) error {
	out := *cfg
	if out.Jbovlaste.Password != "" {
		out.Jbovlaste.Password = "********"
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return enc.Close()
}
