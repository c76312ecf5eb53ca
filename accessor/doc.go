package accessor

// accessor implements get-or-create for the one record the service manages.
// It reads the record under record.Key and returns it, or, when nothing
// usable is stored there, writes the default record and acknowledges the
// creation. It is independent of any particular transport: requests and
// responses are plain descriptions, and failures are returned as errors for
// the transport to present however it likes.
