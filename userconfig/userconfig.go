package userconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/ptgott/one-record/server"
	"github.com/ptgott/one-record/storage"
	"github.com/rs/zerolog/log"

	yaml "gopkg.in/yaml.v2"
)

// Format is the syntax of a config file
type Format string

const (
	// YAML also covers JSON, which is a subset of it
	YAML Format = "yaml"
	TOML Format = "toml"
)

// FormatFromPath picks a Format based on a config file's extension.
// Anything other than .toml is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return TOML
	}
	return YAML
}

// Meta represents all current config options that the application can use,
// i.e., after validation and parsing
type Meta struct {
	Server  server.Config    `yaml:"server"`
	Storage storage.KVConfig `yaml:"storage"`
}

// document is what we decode into so we can tell a missing section from an
// empty one
type document struct {
	Server  *server.Config    `yaml:"server"`
	Storage *storage.KVConfig `yaml:"storage"`
}

// CheckAndSetDefaults validates m and either returns a copy of m with default
// settings applied or returns an error due to an invalid configuration
func (m *Meta) CheckAndSetDefaults() (Meta, error) {
	c := Meta{}

	s, err := m.Server.CheckAndSetDefaults()
	if err != nil {
		return Meta{}, err
	}
	c.Server = s

	k, err := m.Storage.CheckAndSetDefaults()
	if err != nil {
		return Meta{}, err
	}
	c.Storage = k

	return c, nil

}

// Parse generates usable configurations from possibly arbitrary user input.
// An error indicates a problem with parsing or validation. The Reader r
// can be JSON or YAML if f is YAML, or TOML if f is TOML.
func Parse(r io.Reader, f Format) (*Meta, error) {
	if f == TOML {
		y, err := tomlToYAML(r)
		if err != nil {
			return &Meta{}, err
		}
		r = y
	}

	var d document
	err := yaml.NewDecoder(r).Decode(&d)
	if err != nil {
		return &Meta{}, fmt.Errorf("can't read the config file as %v: %v", f, err)
	}

	if d.Server == nil {
		return &Meta{}, errors.New("must include a \"server\" section")
	}

	// Storage settings are optional since every field has a default
	// (except for the storage directory, which validation catches)
	if d.Storage == nil {
		log.Debug().Msg("no \"storage\" section, using defaults")
		d.Storage = &storage.KVConfig{}
	}

	return &Meta{
		Server:  *d.Server,
		Storage: *d.Storage,
	}, nil

}

// tomlToYAML re-encodes a TOML document as YAML so both formats share the
// same unmarshaling and validation code
func tomlToYAML(r io.Reader) (io.Reader, error) {
	tree, err := toml.LoadReader(r)
	if err != nil {
		return nil, fmt.Errorf("can't read the config file as TOML: %v", err)
	}
	b, err := yaml.Marshal(tree.ToMap())
	if err != nil {
		return nil, fmt.Errorf("can't convert the TOML config: %v", err)
	}
	return bytes.NewReader(b), nil
}
