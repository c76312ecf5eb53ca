package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/ptgott/one-record/record"
	"github.com/ptgott/one-record/storage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print whatever is stored under the record key",
	Long: `Print whatever is stored under the record key, and whether it decodes
as a record. Badger and bbolt lock their files, so stop the server first.`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

// errNothingStored makes inspect exit non-zero when the key is empty
var errNothingStored = errors.New("nothing is stored under the record key")

func runInspect(cmd *cobra.Command, _ []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := storage.NewDatabase(&config.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("error closing the database")
		}
	}()

	kv, err := db.Open(cmd.Context())
	if err != nil {
		return err
	}
	defer kv.Close()

	e, err := kv.Read([]byte(record.Key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return errNothingStored
	}
	if err != nil {
		return err
	}

	return describe(cmd.OutOrStdout(), config.Storage.Namespace, e)
}

func describe(w io.Writer, namespace string, e storage.KVEntry) error {
	r, decodeErr := record.JSONCodec{}.Decode(e.Value)

	_, err := fmt.Fprintf(w, "key:       %s (namespace %q)\nsize:      %s\nvalue:     %s\n",
		e.Key, namespace, humanize.Bytes(uint64(len(e.Value))), e.Value)
	if err != nil {
		return err
	}
	if decodeErr != nil {
		_, err = fmt.Fprintf(w, "decodes:   no (%v)\n", decodeErr)
		return err
	}
	_, err = fmt.Fprintf(w, "decodes:   yes\nfingerprint: %s\nlocation:  %s\n", r.Fingerprint, r.Location)
	return err
}
