package reputation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cloakgate/cloakgate/internal/observability"
)

func newTestClient(baseURL, apiKey string) *Client {
	return NewClient(baseURL, apiKey, 500*time.Millisecond, 10*time.Minute, zap.NewNop(), observability.NewNoOpRegistry())
}

func TestLookupMapsResponse(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected Record
	}{
		{
			name: "vpn address",
			body: `{"status":"ok","1.2.3.4":{"proxy":"yes","type":"VPN","iso":"NL","provider":"NordVPN"}}`,
			expected: Record{
				ProxyOrVPN: true,
				Country:    "NL",
				Provider:   "NordVPN",
			},
		},
		{
			name: "datacenter address",
			body: `{"status":"ok","1.2.3.4":{"proxy":"no","type":"Hosting","iso":"US","operator":"AWS"}}`,
			expected: Record{
				HostingClass: HostingDatacenter,
				Country:      "US",
				Operator:     "AWS",
			},
		},
		{
			name: "business address",
			body: `{"status":"ok","1.2.3.4":{"proxy":"no","type":"Business","iso":"DE","operator":"SAP"}}`,
			expected: Record{
				HostingClass: HostingBusiness,
				Country:      "DE",
				Operator:     "SAP",
			},
		},
		{
			name: "residential address",
			body: `{"status":"ok","1.2.3.4":{"proxy":"no","type":"Residential","iso":"GB"}}`,
			expected: Record{
				Country: "GB",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v2/1.2.3.4" {
					t.Errorf("unexpected path %q", r.URL.Path)
				}
				if r.URL.Query().Get("key") != "test-key" {
					t.Errorf("missing api key in query")
				}
				if r.URL.Query().Get("vpn") != "1" || r.URL.Query().Get("asn") != "1" {
					t.Errorf("missing vpn/asn flags in query: %s", r.URL.RawQuery)
				}
				fmt.Fprint(w, tc.body)
			}))
			defer srv.Close()

			c := newTestClient(srv.URL, "test-key")

			rec, err := c.Lookup(context.Background(), "1.2.3.4")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *rec != tc.expected {
				t.Errorf("expected %+v, got %+v", tc.expected, *rec)
			}
		})
	}
}

func TestLookupDisabledWithoutKey(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	if c.Enabled() {
		t.Fatal("client without key must report disabled")
	}

	_, err := c.Lookup(context.Background(), "1.2.3.4")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("disabled client must not make network calls, got %d", calls)
	}
}

func TestLookupUnavailableModes(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"status":"ok","1.2.3.4":`)
			},
		},
		{
			name: "result missing for address",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"status":"denied"}`)
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(2 * time.Second)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			c := newTestClient(srv.URL, "test-key")

			_, err := c.Lookup(context.Background(), "1.2.3.4")
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", err)
			}
		})
	}
}

func TestLookupCachesResults(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"status":"ok","1.2.3.4":{"proxy":"yes","type":"VPN","iso":"NL"}}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "test-key")

	first, err := c.Lookup(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	second, err := c.Lookup(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}

	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected one upstream call, got %d", calls)
	}
	if *first != *second {
		t.Errorf("cached record differs: %+v vs %+v", *first, *second)
	}

	// A different address misses the cache.
	if _, err := c.Lookup(context.Background(), "5.6.7.8"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected miss for unknown address, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected second upstream call for new address, got %d", calls)
	}
}

func TestLookupFailuresAreNotCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"status":"ok","1.2.3.4":{"proxy":"no","type":"Residential","iso":"US"}}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "test-key")

	if _, err := c.Lookup(context.Background(), "1.2.3.4"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on first call, got %v", err)
	}
	rec, err := c.Lookup(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("expected recovery on second call, got %v", err)
	}
	if rec.Country != "US" {
		t.Errorf("expected fresh record after failure, got %+v", rec)
	}
}
