package keyserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeServer is a minimal in-memory key server: register stores a
// wrapped key keyed by uid, fetch returns it back. It exists purely to
// exercise Client's wire format; TLS trust is out of scope for this
// white-box test, so it talks plain HTTP and the test constructs Client
// directly instead of going through New (which enforces https).
type fakeServer struct {
	mu      sync.Mutex
	wrapped map[string][]byte
}

func newFakeServer() *httptest.Server {
	fs := &fakeServer{wrapped: map[string][]byte{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fs.mu.Lock()
		fs.wrapped[req.UID] = req.WrappedKey
		fs.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/fetch", func(w http.ResponseWriter, r *http.Request) {
		var req fetchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fs.mu.Lock()
		wrapped, ok := fs.wrapped[req.UID]
		fs.mu.Unlock()
		if !ok || req.TOTP != "000000" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(fetchResponse{WrappedKey: wrapped})
	})
	return httptest.NewServer(mux)
}

func testClient(srv *httptest.Server) *Client {
	return &Client{httpClient: srv.Client(), baseURL: srv.URL}
}

func TestRegisterThenFetch(t *testing.T) {
	srv := newFakeServer()
	defer srv.Close()
	c := testClient(srv)

	wrapped := []byte{1, 2, 3, 4, 5}
	require.NoError(t, c.Register(context.Background(), "uid-1", "auth-params", wrapped))

	got, err := c.Fetch(context.Background(), "uid-1", "000000")
	require.NoError(t, err)
	require.Equal(t, wrapped, got)
}

func TestFetchWrongTOTPFails(t *testing.T) {
	srv := newFakeServer()
	defer srv.Close()
	c := testClient(srv)

	require.NoError(t, c.Register(context.Background(), "uid-2", "", []byte{9}))
	_, err := c.Fetch(context.Background(), "uid-2", "999999")
	require.Error(t, err)
}

func TestNewRejectsNonHTTPS(t *testing.T) {
	_, err := New("http://example.com")
	require.Error(t, err)
}

func TestNewAcceptsHTTPS(t *testing.T) {
	c, err := New("https://example.com")
	require.NoError(t, err)
	require.NotNil(t, c)
}
