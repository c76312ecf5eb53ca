package accessor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ptgott/one-record/record"
	"github.com/ptgott/one-record/storage"
	"github.com/rs/zerolog"
)

// CreatedStatus is the acknowledgment sent when a record was just created
const CreatedStatus = "created new user"

var (
	// ErrStoreOpen means no store handle could be opened
	ErrStoreOpen = errors.New("can't open the store")
	// ErrStoreWrite means the default record could not be persisted
	ErrStoreWrite = errors.New("can't store the new record")
	// ErrDecode means the stored record is corrupt. Only returned when
	// TreatDecodeFailureAsAbsent is false.
	ErrDecode = errors.New("stored record is corrupt")
	// ErrEncode means a record could not be serialized
	ErrEncode = errors.New("can't encode the record")
)

// Request describes an inbound request. Handle never looks at it.
type Request struct {
	Method string
	Path   string
	Header map[string][]string
	Body   []byte
}

// Response describes what the transport should send back
type Response struct {
	Status int
	Body   []byte
}

// Acknowledgment is the body of a response to a request that created the
// record
type Acknowledgment struct {
	Status string `json:"status"`
}

// Accessor performs get-or-create against a store. It keeps no state between
// calls to Handle apart from its configuration.
type Accessor struct {
	Store storage.Opener
	Codec record.Codec
	// TreatDecodeFailureAsAbsent makes a stored record that can't be
	// decoded behave exactly like a missing one: it gets overwritten with
	// the default record.
	TreatDecodeFailureAsAbsent bool
}

// New returns an Accessor using the JSON codec with decode failures treated
// as absence
func New(store storage.Opener) *Accessor {
	return &Accessor{
		Store:                      store,
		Codec:                      record.JSONCodec{},
		TreatDecodeFailureAsAbsent: true,
	}
}

// Handle returns the stored record, creating and storing the default record
// first if there isn't one. A store handle is opened for the call and closed
// before it returns. Any error means no response should be sent as-is.
func (a *Accessor) Handle(ctx context.Context, _ Request) (Response, error) {
	resp, outcome, err := a.handle(ctx)
	mHandled.WithLabelValues(outcome).Inc()
	return resp, err
}

func (a *Accessor) handle(ctx context.Context) (Response, string, error) {
	logger := zerolog.Ctx(ctx)

	kv, err := a.Store.Open(ctx)
	if err != nil {
		return Response{}, outcomeFailed, fmt.Errorf("%w: %w", ErrStoreOpen, err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing the store handle")
		}
	}()

	r, found, err := a.lookup(kv, logger)
	if err != nil {
		return Response{}, outcomeFailed, err
	}

	if found {
		b, err := a.Codec.Encode(r)
		if err != nil {
			return Response{}, outcomeFailed, fmt.Errorf("%w: %w", ErrEncode, err)
		}
		return Response{Status: http.StatusOK, Body: b}, outcomeFound, nil
	}

	e, err := record.NewKVEntry(a.Codec, record.Default())
	if err != nil {
		return Response{}, outcomeFailed, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if err := kv.Put(e); err != nil {
		return Response{}, outcomeFailed, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	logger.Info().Str("key", record.Key).Msg("stored a new record")

	// Marshaling a struct of strings doesn't fail
	b, _ := json.Marshal(Acknowledgment{Status: CreatedStatus})
	return Response{Status: http.StatusOK, Body: b}, outcomeCreated, nil
}

// lookup reads and decodes the stored record. Read errors of any kind are
// reported as "not found".
func (a *Accessor) lookup(kv storage.KeyValue, logger *zerolog.Logger) (record.Record, bool, error) {
	e, err := kv.Read([]byte(record.Key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		logger.Debug().Str("key", record.Key).Msg("no record stored yet")
		return record.Record{}, false, nil
	}
	if err != nil {
		logger.Warn().Err(err).Str("key", record.Key).Msg("can't read the record, treating it as absent")
		return record.Record{}, false, nil
	}

	r, err := a.Codec.Decode(e.Value)
	if err != nil {
		if !a.TreatDecodeFailureAsAbsent {
			return record.Record{}, false, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		logger.Warn().Err(err).Str("key", record.Key).Msg("can't decode the record, treating it as absent")
		return record.Record{}, false, nil
	}
	return r, true, nil
}
