// Package config loads the configuration of a site: nanoc.yaml in the site
// root, a .env file next to it, and NANOC_* environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Reality2byte/nanoc/internal/ir"
	"github.com/Reality2byte/nanoc/internal/output"
)

// FileName is the configuration file looked up in the site root.
const FileName = "nanoc.yaml"

// Output kinds.
const (
	OutputFilesystem = "filesystem"
	OutputS3         = "s3"
)

// Config is the resolved configuration. Relative paths are resolved
// against Root.
type Config struct {
	Root string `yaml:"-"`

	OutputDir         string      `yaml:"output_dir"`
	ContentDir        string      `yaml:"content_dir"`
	LayoutsDir        string      `yaml:"layouts_dir"`
	RulesFile         string      `yaml:"rules_file"`
	StorePath         string      `yaml:"store_path"`
	ChecksumAlgorithm string      `yaml:"checksum_algorithm"`
	MaxSuspensions    int         `yaml:"max_suspensions"`
	Cache             CacheConfig `yaml:"cache"`
	Output            Output      `yaml:"output"`

	// Attributes is the whole configuration document. It is the site's
	// configuration object, so templates can read any key.
	Attributes map[string]any `yaml:"-"`
}

// CacheConfig configures the compiled-content cache.
type CacheConfig struct {
	MemoryEntries int `yaml:"memory_entries"`
}

// Output selects where compiled reps are written.
type Output struct {
	Kind string   `yaml:"kind"`
	S3   S3Output `yaml:"s3"`
}

// S3Output configures an S3-compatible destination.
type S3Output struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`
}

// Defaults returns the configuration of a site without nanoc.yaml.
func Defaults(root string) *Config {
	return &Config{
		Root:              root,
		OutputDir:         "output",
		ContentDir:        "content",
		LayoutsDir:        "layouts",
		RulesFile:         "rules.cue",
		StorePath:         filepath.Join("tmp", "nanoc", "store.db"),
		ChecksumAlgorithm: string(ir.SHA256),
		Output:            Output{Kind: OutputFilesystem},
		Attributes:        map[string]any{},
	}
}

// Load reads the configuration of the site rooted at root.
func Load(root string) (*Config, error) {
	cfg := Defaults(root)

	data, err := os.ReadFile(filepath.Join(root, FileName))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", FileName, err)
		}
		if err := yaml.Unmarshal(data, &cfg.Attributes); err != nil {
			return nil, fmt.Errorf("parse %s: %w", FileName, err)
		}
		if cfg.Attributes == nil {
			cfg.Attributes = map[string]any{}
		}
	}

	if err := loadDotEnv(filepath.Join(root, ".env")); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv sets the variables of a .env file that the environment does
// not already define.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("NANOC_OUTPUT_DIR", &c.OutputDir)
	str("NANOC_CONTENT_DIR", &c.ContentDir)
	str("NANOC_LAYOUTS_DIR", &c.LayoutsDir)
	str("NANOC_RULES_FILE", &c.RulesFile)
	str("NANOC_STORE_PATH", &c.StorePath)
	str("NANOC_CHECKSUM_ALGORITHM", &c.ChecksumAlgorithm)
	str("NANOC_OUTPUT_KIND", &c.Output.Kind)
	str("NANOC_S3_ENDPOINT", &c.Output.S3.Endpoint)
	str("NANOC_S3_REGION", &c.Output.S3.Region)
	str("NANOC_S3_BUCKET", &c.Output.S3.Bucket)
	str("NANOC_S3_ACCESS_KEY", &c.Output.S3.AccessKey)
	str("NANOC_S3_SECRET_KEY", &c.Output.S3.SecretKey)
	str("NANOC_S3_PREFIX", &c.Output.S3.Prefix)

	if v, ok := lookup("NANOC_S3_USE_SSL"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("NANOC_S3_USE_SSL: %w", err)
		}
		c.Output.S3.UseSSL = b
	}
	if v, ok := lookup("NANOC_MAX_SUSPENSIONS"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("NANOC_MAX_SUSPENSIONS: %w", err)
		}
		c.MaxSuspensions = n
	}
	return nil
}

// Validate checks values that have a fixed set of choices.
func (c *Config) Validate() error {
	if _, err := ir.ParseAlgorithm(c.ChecksumAlgorithm); err != nil {
		return fmt.Errorf("checksum_algorithm: %w", err)
	}
	switch c.Output.Kind {
	case "", OutputFilesystem, OutputS3:
	default:
		return fmt.Errorf("output.kind: unknown kind %q (want %s or %s)", c.Output.Kind, OutputFilesystem, OutputS3)
	}
	if c.MaxSuspensions < 0 {
		return fmt.Errorf("max_suspensions: must not be negative")
	}
	if c.Cache.MemoryEntries < 0 {
		return fmt.Errorf("cache.memory_entries: must not be negative")
	}
	return nil
}

// Algorithm returns the configured checksum algorithm.
func (c *Config) Algorithm() ir.Algorithm {
	alg, _ := ir.ParseAlgorithm(c.ChecksumAlgorithm)
	return alg
}

// Path resolves p against the site root.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// Destination creates the configured output destination.
func (c *Config) Destination() (output.Destination, error) {
	if c.Output.Kind == OutputS3 {
		s3 := c.Output.S3
		return output.NewS3(output.S3Config{
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Bucket:    s3.Bucket,
			UseSSL:    s3.UseSSL,
			Prefix:    s3.Prefix,
		})
	}
	return output.NewFilesystem(c.Path(c.OutputDir)), nil
}
