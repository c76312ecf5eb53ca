package e2e

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/ptgott/one-record/record"
	"github.com/ptgott/one-record/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	createdBody = `{"status":"created new user"}`
	defaultBody = `{"fingerprint":"0x1234","location":"Brisbane"}`
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

// The first request creates the record, and it is still there after the
// application restarts.
func TestRecordSurvivesRestart(t *testing.T) {
	for _, b := range []storage.Backend{storage.BackendBadger, storage.BackendBolt} {
		t.Run(string(b), func(t *testing.T) {
			testenv, err := startTestEnvironment(testEnvironmentConfig{backend: b})
			defer testenv.tearDown()
			if err != nil {
				t.Fatalf("error starting test environment: %v", err)
			}

			code, body := get(t, testenv.url("/"))
			assert.Equal(t, http.StatusOK, code)
			assert.JSONEq(t, createdBody, body)

			code, body = get(t, testenv.url("/anything"))
			assert.Equal(t, http.StatusOK, code)
			assert.JSONEq(t, defaultBody, body)

			require.NoError(t, testenv.stop())
			require.NoError(t, testenv.start())

			code, body = get(t, testenv.url("/"))
			assert.Equal(t, http.StatusOK, code)
			assert.JSONEq(t, defaultBody, body)
		})
	}
}

// A record written by someone else is returned untouched, and a corrupt one
// is replaced.
func TestStoredRecordIsServed(t *testing.T) {
	testenv, err := startTestEnvironment(testEnvironmentConfig{backend: storage.BackendBadger})
	defer testenv.tearDown()
	if err != nil {
		t.Fatalf("error starting test environment: %v", err)
	}

	put := func(value string) {
		kv, err := testenv.db.Open(context.Background())
		require.NoError(t, err)
		defer kv.Close()
		require.NoError(t, kv.Put(storage.KVEntry{Key: []byte(record.Key), Value: []byte(value)}))
	}

	put(`{"fingerprint":"abc","location":"Tokyo"}`)
	for i := 0; i < 3; i++ {
		code, body := get(t, testenv.url("/"))
		assert.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, `{"fingerprint":"abc","location":"Tokyo"}`, body)
	}

	put(`not-json`)
	code, body := get(t, testenv.url("/"))
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, createdBody, body)

	code, body = get(t, testenv.url("/"))
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, defaultBody, body)
}

func TestOversizedBodyIsRejected(t *testing.T) {
	testenv, err := startTestEnvironment(testEnvironmentConfig{backend: storage.BackendMemory})
	defer testenv.tearDown()
	if err != nil {
		t.Fatalf("error starting test environment: %v", err)
	}

	resp, err := http.Post(testenv.url("/"), "text/plain", strings.NewReader(strings.Repeat("x", 2048)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestAdminEndpoints(t *testing.T) {
	testenv, err := startTestEnvironment(testEnvironmentConfig{backend: storage.BackendMemory})
	defer testenv.tearDown()
	if err != nil {
		t.Fatalf("error starting test environment: %v", err)
	}

	get(t, testenv.url("/"))

	code, body := get(t, "http://"+testenv.adminAddr+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `onerecord_accessor_handled_total{outcome="created"}`)
	assert.Contains(t, body, `onerecord_storage_ops_total`)

	code, body = get(t, "http://"+testenv.adminAddr+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body)
}
