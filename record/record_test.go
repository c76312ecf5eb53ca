package record

import (
	"errors"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONCodec_Encode(t *testing.T) {
	b, err := JSONCodec{}.Encode(Default())
	require.NoError(t, err)
	assert.Equal(t, `{"fingerprint":"0x1234","location":"Brisbane"}`, string(b))
}

func TestJSONCodec_Decode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Record
		wantErr bool
	}{
		{
			name:  "canonical",
			input: `{"fingerprint":"abc","location":"Tokyo"}`,
			want:  Record{Fingerprint: "abc", Location: "Tokyo"},
		},
		{
			name:  "extra fields are ignored",
			input: `{"fingerprint":"abc","location":"Tokyo","age":3}`,
			want:  Record{Fingerprint: "abc", Location: "Tokyo"},
		},
		{
			name:  "empty strings are fine",
			input: `{"fingerprint":"","location":""}`,
			want:  Record{},
		},
		{
			name:    "not JSON",
			input:   `not-json`,
			wantErr: true,
		},
		{
			name:    "missing location",
			input:   `{"fingerprint":"abc"}`,
			wantErr: true,
		},
		{
			name:    "null fingerprint",
			input:   `{"fingerprint":null,"location":"Tokyo"}`,
			wantErr: true,
		},
		{
			name:    "number instead of string",
			input:   `{"fingerprint":1,"location":"Tokyo"}`,
			wantErr: true,
		},
		{
			name:    "not an object",
			input:   `["abc","Tokyo"]`,
			wantErr: true,
		},
		{
			name:    "trailing data",
			input:   `{"fingerprint":"abc","location":"Tokyo"}x`,
			wantErr: true,
		},
		{
			name:    "empty",
			input:   ``,
			wantErr: true,
		},
		{
			name:    "keys in the wrong case",
			input:   `{"FINGERPRINT":"abc","Location":"Tokyo"}`,
			wantErr: true,
		},
		{
			name:  "wrong-case keys beside the real ones are ignored",
			input: `{"fingerprint":"abc","location":"Tokyo","Location":"Perth"}`,
			want:  Record{Fingerprint: "abc", Location: "Tokyo"},
		},
		{
			name:    "repeated key",
			input:   `{"fingerprint":"abc","fingerprint":"def","location":"Tokyo"}`,
			wantErr: true,
		},
		{
			name:  "repeated unknown key",
			input: `{"fingerprint":"abc","location":"Tokyo","age":1,"age":2}`,
			want:  Record{Fingerprint: "abc", Location: "Tokyo"},
		},
		{
			name:    "invalid UTF-8",
			input:   "{\"fingerprint\":\"a\xffb\",\"location\":\"Tokyo\"}",
			wantErr: true,
		},
		{
			name:    "second object",
			input:   `{"fingerprint":"abc","location":"Tokyo"}{}`,
			wantErr: true,
		},
		{
			name:    "truncated",
			input:   `{"fingerprint":"abc","location":"Tokyo"`,
			wantErr: true,
		},
		{
			name:  "escaped key",
			input: `{"\u0066ingerprint":"abc","location":"Tokyo"}`,
			want:  Record{Fingerprint: "abc", Location: "Tokyo"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JSONCodec{}.Decode([]byte(tt.input))
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrDecode), "expected ErrDecode but got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	// quick only generates valid UTF-8, which JSON preserves exactly
	if err := quick.Check(func(fingerprint, location string) bool {
		r := Record{Fingerprint: fingerprint, Location: location}
		b, err := JSONCodec{}.Encode(r)
		if err != nil {
			return false
		}
		got, err := JSONCodec{}.Decode(b)
		return err == nil && got == r
	}, &quick.Config{
		MaxCount: 1000,
	}); err != nil {
		t.Error(err)
	}
}

func TestNewKVEntry(t *testing.T) {
	e, err := NewKVEntry(JSONCodec{}, Default())
	require.NoError(t, err)
	assert.Equal(t, []byte(Key), e.Key)
	assert.JSONEq(t, `{"fingerprint":"0x1234","location":"Brisbane"}`, string(e.Value))
}
