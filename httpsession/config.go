package httpsession

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	agingstore "github.com/karupanerura/aging-store"
)

// DefaultSweepIntervalSeconds is the sweep interval applied when the config
// leaves it unset.
const DefaultSweepIntervalSeconds = 30

// Config is the session store configuration parsed from a yaml file.
type Config struct {
	// TTLSeconds is the session time-to-live in seconds. Required.
	TTLSeconds int `yaml:"ttl"`

	// RefreshOnRead controls whether reading a session extends its life.
	// Defaults to true when unset.
	RefreshOnRead *bool `yaml:"refresh_on_read"`

	// RefreshOnWrite controls whether writing a session extends its life.
	// Defaults to true when unset.
	RefreshOnWrite *bool `yaml:"refresh_on_write"`

	// SweepIntervalSeconds is the interval between background sweep ticks,
	// in seconds (default 30).
	SweepIntervalSeconds int `yaml:"sweep_interval"`

	// SweepOpThreshold, when set, makes a tick sweep only after at least
	// this many writes since the last sweep. Zero sweeps on every tick.
	SweepOpThreshold int64 `yaml:"sweep_op_threshold"`

	// Cookie configures the session cookie issued to clients.
	Cookie CookieConfig `yaml:"cookie"`
}

// CookieConfig is the `cookie:` section of the config.
type CookieConfig struct {
	// Name is the cookie name (default "__Host-session").
	Name string `yaml:"name"`

	// Path is the cookie path (default "/", required for __Host- names).
	Path string `yaml:"path"`

	// Secure marks the cookie Secure. Must be true for __Host- names.
	Secure bool `yaml:"secure"`

	// SameSite is one of: lax | strict | none. Defaults to lax.
	SameSite string `yaml:"same_site"`
}

// LoadConfig reads and parses the yaml config at path, applies defaults and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SweepIntervalSeconds == 0 {
		c.SweepIntervalSeconds = DefaultSweepIntervalSeconds
	}
	if c.Cookie.Name == "" {
		c.Cookie.Name = CookieName
	}
	if c.Cookie.Path == "" {
		c.Cookie.Path = "/"
	}
	if c.Cookie.SameSite == "" {
		c.Cookie.SameSite = "lax"
	}
}

// Validate reports the first configuration error, if any.
// A missing or non-positive ttl is fatal here rather than at first use.
func (c *Config) Validate() error {
	if c.TTLSeconds <= 0 {
		return fmt.Errorf("config: ttl must be a positive number of seconds, got %d", c.TTLSeconds)
	}
	if c.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("config: sweep_interval must be a positive number of seconds, got %d", c.SweepIntervalSeconds)
	}
	if c.SweepOpThreshold < 0 {
		return fmt.Errorf("config: sweep_op_threshold must not be negative, got %d", c.SweepOpThreshold)
	}
	switch c.Cookie.SameSite {
	case "lax", "strict", "none":
	default:
		return fmt.Errorf("config: cookie.same_site must be lax, strict or none, got %q", c.Cookie.SameSite)
	}
	return nil
}

// TTL returns the configured time-to-live as a duration.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// SweepInterval returns the configured sweep interval as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// CookieOptions translates the cookie section into issuing options.
func (c *Config) CookieOptions() CookieOptions {
	var sameSite http.SameSite
	switch c.Cookie.SameSite {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	default:
		sameSite = http.SameSiteLaxMode
	}
	return CookieOptions{
		Name:     c.Cookie.Name,
		Path:     c.Cookie.Path,
		Secure:   c.Cookie.Secure,
		HttpOnly: true,
		SameSite: sameSite,
	}
}

// StoreOptions translates the config into store construction options.
func StoreOptions[V agingstore.ValueConstraint](c *Config) []agingstore.Option[V] {
	opts := []agingstore.Option[V]{
		agingstore.WithTTL[V](c.TTL()),
		agingstore.WithSweepInterval[V](c.SweepInterval()),
	}
	if c.RefreshOnRead != nil {
		opts = append(opts, agingstore.WithRefreshOnRead[V](*c.RefreshOnRead))
	}
	if c.RefreshOnWrite != nil {
		opts = append(opts, agingstore.WithRefreshOnWrite[V](*c.RefreshOnWrite))
	}
	if c.SweepOpThreshold > 0 {
		opts = append(opts, agingstore.WithSweepOpThreshold[V](c.SweepOpThreshold))
	}
	return opts
}
