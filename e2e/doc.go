package e2e

// e2e contains integration tests and utility code required to set up
// dependencies. Each test writes a real config file, starts the server the
// way the serve command does, and talks to it over HTTP.
