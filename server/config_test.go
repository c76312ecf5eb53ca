package server

import (
	"bytes"
	"testing"
	"time"

	"github.com/docker/go-units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestConfig_UnmarshalYAML(t *testing.T) {
	testCases := []struct {
		description   string
		shouldBeError bool
		input         string
	}{
		{
			description: "valid case",
			input: `listenAddress: 127.0.0.1:8080
adminAddress: 127.0.0.1:9090
readHeaderTimeout: 5s
requestTimeout: 1m
connectionLimit: 20
maxBodySize: 2MiB
cors:
  allowedOrigins: ["*"]
  allowCredentials: true`,
		},
		{
			description: "only a listen address",
			input:       `listenAddress: ":8080"`,
		},
		{
			description:   "not an object",
			shouldBeError: true,
			input:         `[]`,
		},
		{
			description:   "unparseable timeout",
			shouldBeError: true,
			input:         `requestTimeout: 5y`,
		},
		{
			description:   "unparseable body size",
			shouldBeError: true,
			input:         `maxBodySize: lots`,
		},
		{
			description:   "connection limit not a number",
			shouldBeError: true,
			input:         `connectionLimit: many`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			var c Config
			dec := yaml.NewDecoder(bytes.NewBuffer([]byte(tc.input)))
			if err := dec.Decode(&c); (err != nil) != tc.shouldBeError {
				t.Errorf(
					"expected error status of %v but got %v with error %v",
					tc.shouldBeError,
					err != nil,
					err,
				)
			}
		})
	}
}

func TestConfig_UnmarshalYAMLValues(t *testing.T) {
	var c Config
	err := yaml.Unmarshal([]byte(`listenAddress: 127.0.0.1:8080
requestTimeout: 1m
maxBodySize: 2MiB
cors:
  allowedOrigins: ["https://example.com"]
  allowedHeaders: ["Content-Type"]`), &c)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", c.ListenAddress)
	assert.Equal(t, time.Minute, c.RequestTimeout)
	assert.Equal(t, int64(2*units.MiB), c.MaxBodySize)
	assert.Equal(t, defaultConnectionLimit, c.ConnectionLimit)
	assert.Equal(t, []string{"https://example.com"}, c.CORS.AllowedOrigins)
	assert.Equal(t, []string{"Content-Type"}, c.CORS.AllowedHeaders)

	err = yaml.Unmarshal([]byte(`listenAddress: 127.0.0.1:8080
connectionLimit: 0`), &c)
	require.NoError(t, err)
	assert.Zero(t, c.ConnectionLimit)
}

func TestConfig_CheckAndSetDefaults(t *testing.T) {
	c := Config{ListenAddress: "127.0.0.1:8080"}
	got, err := c.CheckAndSetDefaults()
	require.NoError(t, err)
	assert.Equal(t, defaultReadHeaderTimeout, got.ReadHeaderTimeout)
	assert.Equal(t, defaultRequestTimeout, got.RequestTimeout)
	assert.Equal(t, int64(defaultMaxBodySize), got.MaxBodySize)

	for _, bad := range []Config{
		{},
		{ListenAddress: "not an address"},
		{ListenAddress: "127.0.0.1:8080", AdminAddress: "nope"},
		{ListenAddress: "127.0.0.1:8080", ConnectionLimit: -1},
		{ListenAddress: "127.0.0.1:8080", RequestTimeout: -time.Second},
	} {
		_, err := bad.CheckAndSetDefaults()
		assert.Error(t, err, "%+v", bad)
	}
}
