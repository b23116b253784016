package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, pageSize int) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, pageSize, 5*time.Second, zerolog.Nop()), srv
}

func writeLaps(w http.ResponseWriter, from, n int) {
	laps := make([]map[string]any, n)
	for i := range laps {
		laps[i] = map[string]any{
			"session_key":   9161,
			"driver_number": 44,
			"lap_number":    from + i,
		}
	}
	_ = json.NewEncoder(w).Encode(laps)
}

func TestFetch_SinglePage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("session_key"); got != "9161" {
			t.Errorf("session_key param = %q, want 9161", got)
		}
		if offset, _ := strconv.Atoi(r.URL.Query().Get("offset")); offset > 0 {
			writeLaps(w, 0, 0)
			return
		}
		writeLaps(w, 1, 3)
	}, 10)

	records, err := c.Fetch(context.Background(), "laps", map[string]string{"session_key": "9161"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
}

func TestFetch_PaginatesUntilEmptyPage(t *testing.T) {
	var offsets []int
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offsets = append(offsets, offset)
		if limit != 2 {
			t.Errorf("limit param = %d, want 2", limit)
		}
		// 5 laps total: pages of 2, 2, 1, then empty.
		remaining := 5 - offset
		if remaining > limit {
			remaining = limit
		}
		if remaining < 0 {
			remaining = 0
		}
		writeLaps(w, offset+1, remaining)
	}, 2)

	records, err := c.Fetch(context.Background(), "laps", nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("records = %d, want 5", len(records))
	}
	wantOffsets := []int{0, 2, 4, 5}
	if len(offsets) != len(wantOffsets) {
		t.Fatalf("requests = %d (offsets %v), want %v", len(offsets), offsets, wantOffsets)
	}
	for i, off := range wantOffsets {
		if offsets[i] != off {
			t.Errorf("request %d offset = %d, want %d", i, offsets[i], off)
		}
	}
	// Records concatenated in arrival order.
	if got := records[4]["lap_number"]; got != float64(5) {
		t.Errorf("last lap_number = %v, want 5", got)
	}
}

func TestFetch_ServerClampsPageSize(t *testing.T) {
	// The remote caps pages at 2 regardless of the requested limit; a short
	// page must not end the cycle early.
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		remaining := 5 - offset
		if remaining > 2 {
			remaining = 2
		}
		if remaining < 0 {
			remaining = 0
		}
		writeLaps(w, offset+1, remaining)
	}, 10)

	records, err := c.Fetch(context.Background(), "laps", nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("records = %d, want all 5 despite clamped pages", len(records))
	}
}

func TestFetch_EmptyResultIsNotAnError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "[]")
	}, 10)

	records, err := c.Fetch(context.Background(), "laps", map[string]string{"session_key": "0"})
	if err != nil {
		t.Fatalf("empty result must not error, got %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %d, want 0", len(records))
	}
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}, 10)

	_, err := c.Fetch(context.Background(), "laps", nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if se.Code != http.StatusTooManyRequests || se.Endpoint != "laps" {
		t.Errorf("status error = %+v", se)
	}
}

func TestFetch_TransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := NewClient(srv.URL, 10, time.Second, zerolog.Nop())
	srv.Close() // connection refused from here on

	_, err := c.Fetch(context.Background(), "laps", nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestFetch_CanceledBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeLaps(w, 1, 2) // always a full page, would loop forever
		cancel()
	}, 2)

	_, err := c.Fetch(ctx, "laps", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestFetch_MalformedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{not json")
	}, 10)

	if _, err := c.Fetch(context.Background(), "laps", nil); err == nil {
		t.Fatal("expected decode error")
	}
}
