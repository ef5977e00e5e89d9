package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	PAAPI struct {
		AccessKey   string `yaml:"access_key"`
		SecretKey   string `yaml:"secret_key"`
		PartnerTag  string `yaml:"partner_tag"`
		Marketplace string `yaml:"marketplace"`
	} `yaml:"paapi"`
	Twitter struct {
		ConsumerKey       string `yaml:"consumer_key"`
		ConsumerSecret    string `yaml:"consumer_secret"`
		AccessToken       string `yaml:"access_token"`
		AccessTokenSecret string `yaml:"access_token_secret"`
	} `yaml:"twitter"`
	Tracker struct {
		StateFile     string `yaml:"state_file"`
		TemplatesFile string `yaml:"templates_file"`
	} `yaml:"tracker"`
	Schedule struct {
		CheckCron string `yaml:"check_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PA_API_KEY"); v != "" {
		cfg.PAAPI.AccessKey = v
	}
	if v := os.Getenv("PA_API_SECRET"); v != "" {
		cfg.PAAPI.SecretKey = v
	}
	if v := os.Getenv("PARTNER_TAG"); v != "" {
		cfg.PAAPI.PartnerTag = v
	}
	if v := os.Getenv("MARKETPLACE"); v != "" {
		cfg.PAAPI.Marketplace = v
	}
	if v := os.Getenv("TWITTER_CONSUMER_KEY"); v != "" {
		cfg.Twitter.ConsumerKey = v
	}
	if v := os.Getenv("TWITTER_CONSUMER_SECRET"); v != "" {
		cfg.Twitter.ConsumerSecret = v
	}
	if v := os.Getenv("TWITTER_ACCESS_TOKEN"); v != "" {
		cfg.Twitter.AccessToken = v
	}
	if v := os.Getenv("TWITTER_ACCESS_TOKEN_SECRET"); v != "" {
		cfg.Twitter.AccessTokenSecret = v
	}
	if v := os.Getenv("TRACKING_PRODUCTS_FILE"); v != "" {
		cfg.Tracker.StateFile = v
	}
	if v := os.Getenv("TEMPLATES_FILE"); v != "" {
		cfg.Tracker.TemplatesFile = v
	}
	if v := os.Getenv("CRON_CHECK"); v != "" {
		cfg.Schedule.CheckCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.PAAPI.Marketplace == "" {
		cfg.PAAPI.Marketplace = "www.amazon.co.jp"
	}
	if cfg.Tracker.StateFile == "" {
		cfg.Tracker.StateFile = "data/tracking_products.json"
	}
	if cfg.Tracker.TemplatesFile == "" {
		cfg.Tracker.TemplatesFile = "data/post_templates.json"
	}
	if cfg.Schedule.CheckCron == "" {
		cfg.Schedule.CheckCron = "0 0 * * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/tracker.db"
	}

	return cfg, nil
}

// Validate checks that all required credentials are set.
func (c *Config) Validate() error {
	if c.PAAPI.AccessKey == "" {
		return fmt.Errorf("paapi.access_key is required (PA_API_KEY)")
	}
	if c.PAAPI.SecretKey == "" {
		return fmt.Errorf("paapi.secret_key is required (PA_API_SECRET)")
	}
	if c.PAAPI.PartnerTag == "" {
		return fmt.Errorf("paapi.partner_tag is required (PARTNER_TAG)")
	}
	if c.Twitter.ConsumerKey == "" {
		return fmt.Errorf("twitter.consumer_key is required (TWITTER_CONSUMER_KEY)")
	}
	if c.Twitter.ConsumerSecret == "" {
		return fmt.Errorf("twitter.consumer_secret is required (TWITTER_CONSUMER_SECRET)")
	}
	if c.Twitter.AccessToken == "" {
		return fmt.Errorf("twitter.access_token is required (TWITTER_ACCESS_TOKEN)")
	}
	if c.Twitter.AccessTokenSecret == "" {
		return fmt.Errorf("twitter.access_token_secret is required (TWITTER_ACCESS_TOKEN_SECRET)")
	}
	return nil
}
