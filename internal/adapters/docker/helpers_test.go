package docker

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/docker/docker/client"
	"github.com/stretchr/testify/require"
)

// fakeEngine is a Docker Engine API stand-in; tests register the endpoints
// they expect and every request is counted.
type fakeEngine struct {
	mux      *http.ServeMux
	requests atomic.Int32
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{mux: http.NewServeMux()}
}

func (f *fakeEngine) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, h)
}

func (f *fakeEngine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	f.mux.ServeHTTP(w, r)
}

func newConnectionForEngine(t *testing.T, engine http.Handler) *Connection {
	t.Helper()
	return newConnectionWithOptions(t, engine, DefaultOptions())
}

func newConnectionWithOptions(t *testing.T, engine http.Handler, opts Options) *Connection {
	t.Helper()

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	host := strings.TrimPrefix(server.URL, "http://")
	cli, err := client.NewClientWithOpts(client.WithHost("tcp://"+host), client.WithVersion("1.41"), client.WithHTTPClient(server.Client()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })

	return NewConnection(cli, opts, nil)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeDaemonError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, `{"message":"`+message+`"}`)
}
