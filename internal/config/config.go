package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BouyguesTelecom/static.js-sub000/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "staticgo.json"

	// DefaultPort is the default development server port.
	DefaultPort = 3000

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	// DefaultOutput is the default build output directory.
	DefaultOutput = "dist"

	// DefaultCacheDir is the default cache artifact directory.
	DefaultCacheDir = ".staticgo"

	// DefaultDebounce is the default watch debounce window.
	DefaultDebounce = 300 * time.Millisecond
)

// Config represents the complete staticgo.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Version is the project version.
	Version string `json:"version,omitempty"`

	// Paths contains path configuration for project directories.
	Paths PathsConfig `json:"paths,omitempty"`

	// Dev contains development server configuration.
	Dev DevConfig `json:"dev,omitempty"`

	// Build contains production build configuration.
	Build BuildConfig `json:"build,omitempty"`

	// Revalidate contains revalidation endpoint configuration.
	Revalidate RevalidateConfig `json:"revalidate,omitempty"`

	// Deploy contains deployment configuration.
	Deploy DeployConfig `json:"deploy,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// PathsConfig contains path configuration for project directories.
type PathsConfig struct {
	// Pages is the page-source root directory.
	Pages string `json:"pages,omitempty"`

	// Public is the directory of static assets copied verbatim.
	Public string `json:"public,omitempty"`

	// Cache is the directory for route table artifacts.
	Cache string `json:"cache,omitempty"`
}

// DevConfig contains development server settings.
type DevConfig struct {
	// Port is the port to run the dev server on.
	Port int `json:"port,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Watch contains extra paths to watch for changes.
	Watch []string `json:"watch,omitempty"`

	// Ignore contains patterns to ignore during watch.
	Ignore []string `json:"ignore,omitempty"`

	// HotReload enables hot reload in development.
	HotReload *bool `json:"hotReload,omitempty"`

	// DebounceMillis overrides the watch debounce window.
	DebounceMillis int `json:"debounceMillis,omitempty"`
}

// BuildConfig contains production build settings.
type BuildConfig struct {
	// Output is the output directory for builds.
	Output string `json:"output,omitempty"`

	// Prerender maps a dynamic route name to the concrete paths to
	// materialize at build time, e.g. "blog/[slug]": ["blog/hello"].
	Prerender map[string][]string `json:"prerender,omitempty"`

	// Fingerprint enables content-hash fingerprinting of public assets.
	Fingerprint bool `json:"fingerprint,omitempty"`
}

// RevalidateConfig contains revalidation endpoint settings.
type RevalidateConfig struct {
	// APIKey protects POST /revalidate. Empty disables the check in dev;
	// the start server refuses to expose the endpoint without a key.
	APIKey string `json:"apiKey,omitempty"`

	// RatePerSecond is the token bucket refill rate (default 1/s).
	RatePerSecond float64 `json:"ratePerSecond,omitempty"`
}

// DeployConfig contains deployment settings.
type DeployConfig struct {
	// S3 configures S3 deployment of the build output.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config configures an S3 deployment target.
type S3Config struct {
	// Bucket is the target bucket name.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is the key prefix inside the bucket.
	Prefix string `json:"prefix,omitempty"`

	// Region is the AWS region; empty uses the SDK default chain.
	Region string `json:"region,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	hot := true
	return &Config{
		Version: "0.1.0",
		Paths: PathsConfig{
			Pages:  "pages",
			Public: "public",
			Cache:  DefaultCacheDir,
		},
		Dev: DevConfig{
			Port:      DefaultPort,
			Host:      DefaultHost,
			HotReload: &hot,
		},
		Build: BuildConfig{
			Output:      DefaultOutput,
			Fingerprint: true,
		},
		Revalidate: RevalidateConfig{
			RatePerSecond: 1,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for staticgo.json in the directory; a missing file is not an
// error, the defaults are used with the directory as project root.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := New()
			cfg.configPath = configPath
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, errors.New("E001").WithPath(configPath).Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E002").WithPath(configPath).Wrap(err)
	}

	cfg.configPath = configPath
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromWorkingDir loads configuration from the current directory.
func LoadFromWorkingDir() (*Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return Load(dir)
}

// Save writes the configuration back to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E003").Wrap(err)
	}
	data = append(data, '\n')
	return os.WriteFile(c.configPath, data, 0644)
}

// Dir returns the project root directory.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return "."
	}
	return filepath.Dir(c.configPath)
}

// PagesPath returns the absolute page-source root.
func (c *Config) PagesPath() string {
	return c.resolve(c.Paths.Pages)
}

// PublicPath returns the absolute public asset directory.
func (c *Config) PublicPath() string {
	return c.resolve(c.Paths.Public)
}

// CachePath returns the absolute cache artifact directory.
func (c *Config) CachePath() string {
	return c.resolve(c.Paths.Cache)
}

// OutputPath returns the absolute build output directory.
func (c *Config) OutputPath() string {
	return c.resolve(c.Build.Output)
}

// DevAddress returns the host:port the dev server binds to.
func (c *Config) DevAddress() string {
	return fmt.Sprintf("%s:%d", c.Dev.Host, c.Dev.Port)
}

// DevURL returns the browsable URL of the dev server.
func (c *Config) DevURL() string {
	return fmt.Sprintf("http://%s", c.DevAddress())
}

// Debounce returns the watch debounce window.
func (c *Config) Debounce() time.Duration {
	if c.Dev.DebounceMillis > 0 {
		return time.Duration(c.Dev.DebounceMillis) * time.Millisecond
	}
	return DefaultDebounce
}

// HotReload reports whether hot reload is enabled.
func (c *Config) HotReload() bool {
	return c.Dev.HotReload == nil || *c.Dev.HotReload
}

// resolve makes a config-relative path absolute against the project root.
func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Paths.Pages == "" {
		c.Paths.Pages = "pages"
	}
	if c.Paths.Public == "" {
		c.Paths.Public = "public"
	}
	if c.Paths.Cache == "" {
		c.Paths.Cache = DefaultCacheDir
	}
	if c.Dev.Port == 0 {
		c.Dev.Port = DefaultPort
	}
	if c.Dev.Host == "" {
		c.Dev.Host = DefaultHost
	}
	if c.Build.Output == "" {
		c.Build.Output = DefaultOutput
	}
	if c.Revalidate.RatePerSecond <= 0 {
		c.Revalidate.RatePerSecond = 1
	}
}

// validate rejects values that cannot work.
func (c *Config) validate() error {
	if c.Dev.Port < 0 || c.Dev.Port > 65535 {
		return errors.New("E003").WithDetail(fmt.Sprintf("dev.port %d is out of range", c.Dev.Port))
	}
	if c.Dev.DebounceMillis < 0 {
		return errors.New("E003").WithDetail("dev.debounceMillis must not be negative")
	}
	if c.Revalidate.RatePerSecond < 0 {
		return errors.New("E003").WithDetail("revalidate.ratePerSecond must not be negative")
	}
	return nil
}
