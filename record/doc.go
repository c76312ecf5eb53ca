package record

// record defines the single record the service manages and how it is
// serialized for storage and for responses. It knows nothing about where
// records are kept.
