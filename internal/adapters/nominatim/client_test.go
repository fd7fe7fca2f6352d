package nominatim

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samirrijal/poonyc/internal/core/domain"
)

func newServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestGeocode_FirstMatch(t *testing.T) {
	srv, hits := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "350 5th Ave, New York, NY" || q.Get("format") != "json" || q.Get("limit") != "1" {
			t.Errorf("unexpected query %v", q)
		}
		if r.Header.Get("User-Agent") != "poonyc-test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"40.7484","lon":"-73.9857","display_name":"Empire State Building"},
			{"lat":"1","lon":"1","display_name":"elsewhere"}]`))
	})

	c := New(srv.URL+"/", "poonyc-test", time.Second)
	pt, err := c.Geocode(context.Background(), "  350 5th Ave, New York, NY ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pt != (domain.GeoPoint{Lat: 40.7484, Lon: -73.9857}) {
		t.Errorf("unexpected point %+v", pt)
	}
	if hits.Load() != 1 {
		t.Errorf("expected exactly one request, got %d", hits.Load())
	}
}

func TestGeocode_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"no matches", http.StatusOK, `[]`, domain.ErrNotFound},
		{"server error", http.StatusInternalServerError, `oops`, domain.ErrTransient},
		{"rate limited", http.StatusTooManyRequests, ``, domain.ErrTransient},
		{"malformed body", http.StatusOK, `{"lat":`, domain.ErrTransient},
		{"bad coordinate", http.StatusOK, `[{"lat":"north","lon":"-73.9"}]`, domain.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			c := New(srv.URL, "poonyc-test", time.Second)

			_, err := c.Geocode(context.Background(), "somewhere")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if hits.Load() != 1 {
				t.Errorf("expected exactly one request, got %d", hits.Load())
			}
		})
	}
}

func TestGeocode_BlankAddressNoRequest(t *testing.T) {
	srv, hits := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
	c := New(srv.URL, "poonyc-test", time.Second)

	if _, err := c.Geocode(context.Background(), " \t "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("expected no requests, got %d", hits.Load())
	}
}

func TestGeocode_Timeout(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	})
	c := New(srv.URL, "poonyc-test", 50*time.Millisecond)

	start := time.Now()
	_, err := c.Geocode(context.Background(), "slow street")
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Errorf("call was not bounded: %v", elapsed)
	}
}

func TestGeocode_ExpiredContext(t *testing.T) {
	srv, hits := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
	c := New(srv.URL, "poonyc-test", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Geocode(ctx, "anywhere"); !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("expected no requests, got %d", hits.Load())
	}
}
