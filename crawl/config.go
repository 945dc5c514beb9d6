package crawl

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	fetchpkg "github.com/wisecart/wisecrawl/crawl/internal/fetch"
)

// Config configures the crawl service.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path"`

	// Fetch settings (deadline, body cap, user agent).
	Fetch fetchpkg.Config `yaml:"fetch"`

	// Cache freshness windows.
	Cache CacheConfig `yaml:"cache"`
}

// CacheConfig sets the staleness windows.
type CacheConfig struct {
	// ProductTTL is how long a product record is served without re-fetching.
	ProductTTL time.Duration `yaml:"product_ttl"`
	// SearchTTL is how long a search's hits are reused.
	SearchTTL time.Duration `yaml:"search_ttl"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "wisecrawl.db"
	}
	if c.Cache.ProductTTL <= 0 {
		c.Cache.ProductTTL = 24 * time.Hour
	}
	if c.Cache.SearchTTL <= 0 {
		c.Cache.SearchTTL = 24 * time.Hour
	}
	// Fetch defaults are applied by the fetcher itself.
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
