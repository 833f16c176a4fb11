package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ---------------------------------------------------------------------------
// IPProvider.CurrentPosition
// ---------------------------------------------------------------------------

func TestIPProviderCurrentPosition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"status": "success",
			"lat": 23.8103,
			"lon": 90.4125,
			"city": "Dhaka",
			"country": "Bangladesh",
			"timezone": "Asia/Dhaka"
		}`)
	}))
	defer srv.Close()

	p := NewIPProvider()
	p.BaseURL = srv.URL

	got, err := p.CurrentPosition(context.Background())
	if err != nil {
		t.Fatalf("CurrentPosition error: %v", err)
	}

	if got.Latitude != 23.8103 || got.Longitude != 90.4125 {
		t.Errorf("coordinates = %v, %v", got.Latitude, got.Longitude)
	}
	if got.City != "Dhaka" || got.Country != "Bangladesh" {
		t.Errorf("place = %q, %q", got.City, got.Country)
	}
	if got.Timezone != "Asia/Dhaka" {
		t.Errorf("timezone = %q", got.Timezone)
	}
}

func TestIPProviderCurrentPosition_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"api reports failure",
			func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"status": "fail", "message": "private range"}`)
			},
		},
		{
			"http error",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusTooManyRequests)
			},
		},
		{
			"malformed json",
			func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "not json")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewIPProvider()
			p.BaseURL = srv.URL

			if _, err := p.CurrentPosition(context.Background()); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestIPProviderCurrentPosition_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "success", "lat": 1, "lon": 2}`)
	}))
	defer srv.Close()

	p := NewIPProvider()
	p.BaseURL = srv.URL

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.CurrentPosition(ctx); err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}
