package server

import (
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/go-playground/validator/v10"
)

const (
	defaultReadHeaderTimeout = time.Duration(10) * time.Second
	defaultRequestTimeout    = time.Duration(30) * time.Second
	defaultConnectionLimit   = 500
	defaultMaxBodySize       = 1 * units.MiB
)

var validate = validator.New()

// Config contains settings for the HTTP listeners
type Config struct {
	ListenAddress string `validate:"required,hostname_port"`
	// Serves /metrics and /healthz. Disabled if empty.
	AdminAddress      string `validate:"omitempty,hostname_port"`
	ReadHeaderTimeout time.Duration
	// Deadline for handling a single request, including storage calls
	RequestTimeout time.Duration
	// Maximum number of simultaneous connections per listener. Zero
	// disables the limit. Defaults to 500 when read from YAML.
	ConnectionLimit int   `validate:"gte=0"`
	MaxBodySize     int64 `validate:"gte=0"`
	CORS            CORSConfig
}

// CORSConfig controls the CORS headers sent by the main listener
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowedHeaders   []string `yaml:"allowedHeaders"`
	AllowCredentials bool     `yaml:"allowCredentials"`
}

// rawConfig mirrors Config with the durations and sizes still as strings
type rawConfig struct {
	ListenAddress     string     `yaml:"listenAddress"`
	AdminAddress      string     `yaml:"adminAddress"`
	ReadHeaderTimeout string     `yaml:"readHeaderTimeout"`
	RequestTimeout    string     `yaml:"requestTimeout"`
	ConnectionLimit   *int       `yaml:"connectionLimit"`
	MaxBodySize       string     `yaml:"maxBodySize"`
	CORS              CORSConfig `yaml:"cors"`
}

// UnmarshalYAML parses the server section of a user-provided config
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var r rawConfig
	if err := unmarshal(&r); err != nil {
		return fmt.Errorf("can't parse the server config: %v", err)
	}

	c.ListenAddress = r.ListenAddress
	c.AdminAddress = r.AdminAddress
	c.CORS = r.CORS

	if r.ReadHeaderTimeout != "" {
		d, err := time.ParseDuration(r.ReadHeaderTimeout)
		if err != nil {
			return fmt.Errorf("can't parse the read header timeout as a duration: %v", err)
		}
		c.ReadHeaderTimeout = d
	}

	if r.RequestTimeout != "" {
		d, err := time.ParseDuration(r.RequestTimeout)
		if err != nil {
			return fmt.Errorf("can't parse the request timeout as a duration: %v", err)
		}
		c.RequestTimeout = d
	}

	if r.ConnectionLimit == nil {
		c.ConnectionLimit = defaultConnectionLimit
	} else {
		c.ConnectionLimit = *r.ConnectionLimit
	}

	if r.MaxBodySize != "" {
		n, err := units.RAMInBytes(r.MaxBodySize)
		if err != nil {
			return fmt.Errorf("can't parse the maximum body size: %v", err)
		}
		c.MaxBodySize = n
	}

	return nil
}

// CheckAndSetDefaults validates c and either returns a copy of c with default
// settings applied or returns an error due to an invalid configuration
func (c *Config) CheckAndSetDefaults() (Config, error) {
	n := *c

	if n.ReadHeaderTimeout == 0 {
		n.ReadHeaderTimeout = defaultReadHeaderTimeout
	}
	if n.RequestTimeout == 0 {
		n.RequestTimeout = defaultRequestTimeout
	}
	if n.MaxBodySize == 0 {
		n.MaxBodySize = defaultMaxBodySize
	}

	if err := validate.Struct(n); err != nil {
		return Config{}, fmt.Errorf("invalid server config: %w", err)
	}
	if n.ReadHeaderTimeout < 0 || n.RequestTimeout < 0 {
		return Config{}, fmt.Errorf("server timeouts can't be negative")
	}

	return n, nil
}
