package e2e

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ptgott/one-record/accessor"
	"github.com/ptgott/one-record/server"
	"github.com/ptgott/one-record/storage"
	"github.com/ptgott/one-record/userconfig"
)

const (
	tempDirPathName = "tempTestDir"
)

// testEnvironmentConfig exposes options that should be available and
// perhaps changeable when spinning up a test environment. While they
// may not vary between tests, they shouldn't be buried inside
// functions.
type testEnvironmentConfig struct {
	backend storage.Backend
}

// testEnvironment manages all dependencies required to simulate a "real"
// environment and run the e2e tests. Callers should create this via
// startTestEnvironment.
type testEnvironment struct {
	tempDirPath string // must be populated programmatically
	configPath  string
	listenAddr  string
	adminAddr   string

	// set while the application is running
	db     storage.Database
	cancel context.CancelFunc
	done   chan error
}

// startTestEnvironment writes a config file and starts the application.
// Callers should defer a call to tearDown.
//
// Note that if startTestEnvironment fails, it will return an error along with
// whatever shreds of a test environment we've set up so far so you can tear
// it down (i.e., it won't just be the zero value)
func startTestEnvironment(c testEnvironmentConfig) (*testEnvironment, error) {
	te := &testEnvironment{}

	p, err := os.MkdirTemp("", tempDirPathName)
	if err != nil {
		// Shouldn't happen
		return te, fmt.Errorf("could not create the test storage directory: %w", err)
	}
	te.tempDirPath = p
	te.configPath = filepath.Join(p, "config.yaml")

	te.listenAddr, err = freeAddress()
	if err != nil {
		return te, err
	}
	te.adminAddr, err = freeAddress()
	if err != nil {
		return te, err
	}

	err = createAppConfig(te.configPath, appConfigOptions{
		ListenAddress: te.listenAddr,
		AdminAddress:  te.adminAddr,
		Backend:       string(c.backend),
		StorageDir:    filepath.Join(p, "data"),
	})
	if err != nil {
		return te, err
	}

	return te, te.start()
}

// start reads the config file and runs the application the same way the
// serve command does, returning once it answers health checks
func (te *testEnvironment) start() error {
	f, err := os.Open(te.configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	m, err := userconfig.Parse(f, userconfig.FormatFromPath(te.configPath))
	if err != nil {
		return err
	}
	conf, err := m.CheckAndSetDefaults()
	if err != nil {
		return err
	}

	db, err := storage.NewDatabase(&conf.Storage)
	if err != nil {
		return err
	}
	te.db = db

	ctx, cancel := context.WithCancel(context.Background())
	te.cancel = cancel
	te.done = make(chan error, 1)
	srv := server.New(conf.Server, accessor.New(db), server.StoreHealth(db))
	go func() {
		te.done <- srv.Serve(ctx)
	}()

	return waitForHealthy("http://"+te.adminAddr+"/healthz", 5*time.Second)
}

// stop shuts the application down and closes the database so another
// start can reopen it
func (te *testEnvironment) stop() error {
	if te.cancel == nil {
		return nil
	}
	te.cancel()
	te.cancel = nil
	err := <-te.done
	if cerr := te.db.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// tearDown returns the testEnvironment to its state prior to start. Designed
// to call with defer
func (te *testEnvironment) tearDown() {
	if err := te.stop(); err != nil {
		panic(fmt.Sprintf("can't stop the application: %v", err))
	}

	// This error will be nil if the path doesn't exist. See:
	// https://golang.org/pkg/os/#RemoveAll
	err := os.RemoveAll(te.tempDirPath)

	// We're not expecting this to return an error since it's designed to call with
	// defer. Instead we panic, and hopefully we can prevent any panic-causing
	// error from happening again.
	if err != nil {
		panic(fmt.Sprintf("can't delete the test storage directory: %v", err))
	}
}

// url returns the address of path on the main listener
func (te *testEnvironment) url(path string) string {
	return "http://" + te.listenAddr + path
}

// freeAddress finds a local port nobody is listening on. Another process
// could grab it before we do, but that's unlikely during a test run.
func freeAddress() (string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("can't find a free port: %w", err)
	}
	addr := l.Addr().String()
	return addr, l.Close()
}

func waitForHealthy(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	return errors.New("the application didn't become healthy in time")
}
