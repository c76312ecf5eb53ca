package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/ptgott/one-record/storage"
)

// Key is where the record lives in the store. Every request shares it.
const Key = "my_json"

// Default attribute values for a newly created Record
const (
	DefaultFingerprint = "0x1234"
	DefaultLocation    = "Brisbane"
)

// ErrDecode is wrapped by every error a Codec returns from Decode
var ErrDecode = errors.New("can't decode the record")

// Record is the only thing this service stores
type Record struct {
	Fingerprint string `json:"fingerprint"`
	Location    string `json:"location"`
}

// Default returns the Record created when none is stored
func Default() Record {
	return Record{
		Fingerprint: DefaultFingerprint,
		Location:    DefaultLocation,
	}
}

// Codec converts Records to and from their stored representation
type Codec interface {
	Encode(Record) ([]byte, error)
	Decode([]byte) (Record, error)
}

// JSONCodec stores Records as JSON objects. Both fields must appear exactly
// once, spelled exactly, as strings. Other keys are ignored.
type JSONCodec struct{}

// Encode marshals r as a JSON object
func (JSONCodec) Encode(r Record) ([]byte, error) {
	return json.Marshal(r)
}

// Decode parses b as a JSON object with string fields "fingerprint" and
// "location".
//
// The object is walked token by token rather than unmarshaled into a struct
// because encoding/json matches keys case-insensitively and lets a repeated
// key overwrite an earlier one.
func (JSONCodec) Decode(b []byte) (Record, error) {
	if !utf8.Valid(b) {
		return Record{}, fmt.Errorf("%w: invalid UTF-8", ErrDecode)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	if err := expectDelim(dec, '{'); err != nil {
		return Record{}, err
	}

	var fingerprint, location *string
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		k, ok := t.(string)
		if !ok {
			return Record{}, fmt.Errorf("%w: unexpected token %v", ErrDecode, t)
		}

		var dst **string
		switch k {
		case "fingerprint":
			dst = &fingerprint
		case "location":
			dst = &location
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return Record{}, fmt.Errorf("%w: %v", ErrDecode, err)
			}
			continue
		}

		if *dst != nil {
			return Record{}, fmt.Errorf("%w: duplicate field %q", ErrDecode, k)
		}
		var v *string
		if err := dec.Decode(&v); err != nil {
			return Record{}, fmt.Errorf("%w: field %q: %v", ErrDecode, k, err)
		}
		if v == nil {
			return Record{}, fmt.Errorf("%w: field %q is null", ErrDecode, k)
		}
		*dst = v
	}

	if err := expectDelim(dec, '}'); err != nil {
		return Record{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Record{}, fmt.Errorf("%w: trailing data after the object", ErrDecode)
	}

	if fingerprint == nil {
		return Record{}, fmt.Errorf("%w: missing field \"fingerprint\"", ErrDecode)
	}
	if location == nil {
		return Record{}, fmt.Errorf("%w: missing field \"location\"", ErrDecode)
	}
	return Record{
		Fingerprint: *fingerprint,
		Location:    *location,
	}, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	t, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if d, ok := t.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %v but got %v", ErrDecode, want, t)
	}
	return nil
}

// NewKVEntry prepares r to be saved under Key
func NewKVEntry(c Codec, r Record) (storage.KVEntry, error) {
	v, err := c.Encode(r)
	if err != nil {
		return storage.KVEntry{}, err
	}
	return storage.KVEntry{
		Key:   []byte(Key),
		Value: v,
	}, nil
}
