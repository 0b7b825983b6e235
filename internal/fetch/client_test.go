package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ovailles/tvharbor/internal/circuitbreaker"
	apperrors "github.com/ovailles/tvharbor/internal/errors"
)

func testClient(cache *Cache) *Client {
	c := NewClient(Options{
		Timeout:       2 * time.Second,
		RetryAttempts: 3,
		Cache:         cache,
	})
	// Keep test runs fast
	c.retryCfg.InitialBackoff = time.Millisecond
	c.retryCfg.MaxBackoff = 5 * time.Millisecond
	return c
}

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	body, err := testClient(nil).Fetch(context.Background(), server.URL, CacheDefault)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("expected 'payload', got '%s'", body)
	}
}

func TestFetchInvalidURL(t *testing.T) {
	_, err := testClient(nil).Fetch(context.Background(), "not a url", CacheDefault)
	if !apperrors.IsCode(err, apperrors.CodeInvalidURL) {
		t.Errorf("expected INVALID_URL, got %v", err)
	}
}

func TestFetchServerErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(nil).Fetch(context.Background(), server.URL, CacheDefault)
	if !apperrors.IsCode(err, apperrors.CodeServer) {
		t.Fatalf("expected SERVER_ERROR, got %v", err)
	}
	if apperrors.StatusCode(err) != 500 {
		t.Errorf("expected status 500, got %d", apperrors.StatusCode(err))
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("non-2xx must not be retried, got %d calls", calls)
	}
}

func TestFetchRetriesTransportFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			// Drop the connection so the client sees a transport error
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("server does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack failed: %v", err)
			}
			conn.Close()
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer server.Close()

	body, err := testClient(nil).Fetch(context.Background(), server.URL, CacheDefault)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if string(body) != "recovered" {
		t.Errorf("expected 'recovered', got '%s'", body)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestFetchServesFromCache(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("cached"))
	}))
	defer server.Close()

	client := testClient(NewCache(time.Minute, 8))

	for i := 0; i < 3; i++ {
		body, err := client.Fetch(context.Background(), server.URL, CacheDefault)
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if string(body) != "cached" {
			t.Errorf("expected 'cached', got '%s'", body)
		}
	}

	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected a single upstream call, got %d", calls)
	}
}

func TestFetchCacheBypass(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("fresh"))
	}))
	defer server.Close()

	client := testClient(NewCache(time.Minute, 8))

	client.Fetch(context.Background(), server.URL, CacheDefault)
	client.Fetch(context.Background(), server.URL, CacheBypass)

	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("bypass should hit upstream, got %d calls", calls)
	}
}

func TestDecodeJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"BBC One","stream_id":42}`))
	}))
	defer server.Close()

	type stream struct {
		Name     string `json:"name"`
		StreamID int    `json:"stream_id"`
	}

	got, err := DecodeJSON[stream](context.Background(), testClient(nil), server.URL, CacheDefault)
	if err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if got.Name != "BBC One" || got.StreamID != 42 {
		t.Errorf("unexpected decode result: %+v", got)
	}
}

func TestDecodeJSONSchemaMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	_, err := DecodeJSON[map[string]string](context.Background(), testClient(nil), server.URL, CacheDefault)
	if !apperrors.IsCode(err, apperrors.CodeDecode) {
		t.Errorf("expected DECODE_ERROR, got %v", err)
	}
}

func TestFetchOpensCircuitPerHost(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("still here"))
	}))
	defer live.Close()

	client := testClient(nil)

	// Each fetch burns its retry attempts against the dead host
	for i := 0; i < 2; i++ {
		client.Fetch(context.Background(), deadURL, CacheBypass)
	}

	_, err := client.Fetch(context.Background(), deadURL, CacheBypass)
	if !errors.Is(err, circuitbreaker.ErrOpenState) {
		t.Errorf("expected the dead host's circuit to be open, got %v", err)
	}

	// The same client keeps fetching from a healthy host
	body, err := client.Fetch(context.Background(), live.URL, CacheBypass)
	if err != nil {
		t.Fatalf("expected the healthy host to be unaffected, got %v", err)
	}
	if string(body) != "still here" {
		t.Errorf("expected 'still here', got '%s'", body)
	}
}
