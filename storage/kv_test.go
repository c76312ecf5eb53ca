package storage

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestKVConfig_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr bool
	}{
		{
			name: "valid/canonical case",
			config: `backend: badger
storageDir: ./tempTestDir3012705204
namespace: default
keyTTL: "168h"
cleanupInterval: "10m"`,
			wantErr: false,
		},
		{
			name: "cleanup interval not a duration",
			config: `storageDir: ./tempTestDir3012705204
keyTTL: "168h"
cleanupInterval: "10"`,
			wantErr: true,
		},
		{
			name:    "no cleanup interval",
			config:  `storageDir: ./tempTestDir3012705204`,
			wantErr: false,
		},
		{
			name: "key TTL not a duration",
			config: `storageDir: ./tempTestDir3012705204
keyTTL: "168"
cleanupInterval: "10m"`,
			wantErr: true,
		},
		{
			name:    "unquoted zero TTL",
			config:  `keyTTL: 0`,
			wantErr: false,
		},
		{
			name:    "not a JSON object",
			config:  `[]`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := bytes.NewBuffer([]byte(tt.config))
			dec := yaml.NewDecoder(buf)
			var c KVConfig
			if err := dec.Decode(&c); (err != nil) != tt.wantErr {
				t.Errorf("wantErr = %v but got %v with err %v", tt.wantErr, err != nil, err)
			}

		})
	}
}

func TestKVConfig_CheckAndSetDefaults(t *testing.T) {
	tests := []struct {
		name    string
		config  KVConfig
		want    KVConfig
		wantErr bool
	}{
		{
			name:   "defaults",
			config: KVConfig{StorageDirPath: "./data"},
			want: KVConfig{
				Backend:         BackendBadger,
				StorageDirPath:  "./data",
				Namespace:       DefaultNamespace,
				CleanupInterval: 10 * time.Minute,
			},
		},
		{
			name:   "memory needs no directory",
			config: KVConfig{Backend: BackendMemory, Namespace: "other"},
			want: KVConfig{
				Backend:         BackendMemory,
				Namespace:       "other",
				CleanupInterval: 10 * time.Minute,
			},
		},
		{
			name:    "bolt needs a directory",
			config:  KVConfig{Backend: BackendBolt},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			config:  KVConfig{Backend: "redis", StorageDirPath: "./data"},
			wantErr: true,
		},
		{
			name:    "negative TTL",
			config:  KVConfig{StorageDirPath: "./data", KeyTTLDuration: -time.Second},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.config.CheckAndSetDefaults()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewDatabase(t *testing.T) {
	for _, b := range []Backend{BackendBadger, BackendBolt, BackendMemory} {
		t.Run(string(b), func(t *testing.T) {
			db, err := NewDatabase(&KVConfig{Backend: b, StorageDirPath: t.TempDir()})
			require.NoError(t, err)
			require.NoError(t, db.Close())
		})
	}

	_, err := NewDatabase(&KVConfig{Backend: "redis"})
	assert.Error(t, err)
}
