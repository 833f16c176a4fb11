package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// fixTimeout bounds a live position request, mirroring the 10 s limit the
// mobile geolocation APIs use.
const fixTimeout = 10 * time.Second

// defaultIPAPIBaseURL is the ip-api.com endpoint. Free, no API key.
const defaultIPAPIBaseURL = "http://ip-api.com/json/?fields=status,message,lat,lon,city,country,timezone"

// IPProvider detects the user's position from their public IP address.
// It is the geolocation source for hosts without a GPS fix.
type IPProvider struct {
	// BaseURL is exported for testing with httptest.
	BaseURL    string
	httpClient *http.Client
}

// NewIPProvider creates a provider with sensible defaults.
func NewIPProvider() *IPProvider {
	return &IPProvider{
		BaseURL:    defaultIPAPIBaseURL,
		httpClient: &http.Client{Timeout: fixTimeout},
	}
}

// ipAPIResponse maps the response from ip-api.com.
type ipAPIResponse struct {
	Status   string  `json:"status"`
	Message  string  `json:"message"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	City     string  `json:"city"`
	Country  string  `json:"country"`
	Timezone string  `json:"timezone"`
}

// CurrentPosition implements Provider.
func (p *IPProvider) CurrentPosition(ctx context.Context) (Position, error) {
	ctx, cancel := context.WithTimeout(ctx, fixTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL, nil)
	if err != nil {
		return Position{}, fmt.Errorf("building geolocation request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Position{}, fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Position{}, fmt.Errorf("geolocation API returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Position{}, fmt.Errorf("failed to decode geolocation response: %w", err)
	}

	if result.Status != "success" {
		return Position{}, fmt.Errorf("geolocation failed: %s", result.Message)
	}

	return Position{
		Coordinates: Coordinates{Latitude: result.Lat, Longitude: result.Lon},
		City:        result.City,
		Country:     result.Country,
		Timezone:    result.Timezone,
	}, nil
}
