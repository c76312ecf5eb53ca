package server

// server is the HTTP transport in front of the accessor. Every path and method
// on the main listener reaches the accessor; the optional admin listener
// serves Prometheus metrics and a health check.
