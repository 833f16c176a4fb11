package prayer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smokyabdulrahman/ramadan-times/internal/geo"
)

const defaultBaseURL = "https://api.aladhan.com/v1"

// MethodMoonsightingCommittee is the Al Adhan ID of the Moonsighting
// Committee Worldwide calculation method, the app's default.
const MethodMoonsightingCommittee = 15

// AladhanCalculator computes prayer times through the Al Adhan API.
type AladhanCalculator struct {
	httpClient *http.Client
	// BaseURL is the API base URL. Exported for testing with httptest.
	BaseURL string
	// Method is the calculation method ID sent with every request.
	Method int
}

// NewAladhanCalculator creates a calculator using the given calculation
// method. Pass a negative method to let the API choose by location.
func NewAladhanCalculator(method int) *AladhanCalculator {
	return &AladhanCalculator{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    defaultBaseURL,
		Method:     method,
	}
}

// timingsResponse maps the subset of the Al Adhan response we consume.
type timingsResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   struct {
		Timings struct {
			Fajr    string `json:"Fajr"`
			Sunrise string `json:"Sunrise"`
			Dhuhr   string `json:"Dhuhr"`
			Asr     string `json:"Asr"`
			Sunset  string `json:"Sunset"`
			Maghrib string `json:"Maghrib"`
			Isha    string `json:"Isha"`
		} `json:"timings"`
	} `json:"data"`
}

// Compute implements Calculator.
func (c *AladhanCalculator) Compute(ctx context.Context, date time.Time, coords geo.Coordinates) (Times, error) {
	endpoint := fmt.Sprintf("%s/timings/%s", c.BaseURL, date.Format("02-01-2006"))

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%f", coords.Latitude))
	params.Set("longitude", fmt.Sprintf("%f", coords.Longitude))
	if c.Method >= 0 {
		params.Set("method", fmt.Sprintf("%d", c.Method))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Times{}, fmt.Errorf("building API request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Times{}, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Times{}, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp timingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Times{}, fmt.Errorf("failed to decode API response: %w", err)
	}
	if apiResp.Code != 200 {
		return Times{}, fmt.Errorf("API error: code=%d status=%s", apiResp.Code, apiResp.Status)
	}

	tm := apiResp.Data.Timings
	t := Times{}
	for _, field := range []struct {
		raw  string
		dst  *time.Time
		name string
	}{
		{tm.Fajr, &t.Fajr, "Fajr"},
		{tm.Sunrise, &t.Sunrise, "Sunrise"},
		{tm.Dhuhr, &t.Dhuhr, "Dhuhr"},
		{tm.Asr, &t.Asr, "Asr"},
		{tm.Sunset, &t.Sunset, "Sunset"},
		{tm.Maghrib, &t.Maghrib, "Maghrib"},
		{tm.Isha, &t.Isha, "Isha"},
	} {
		instant, err := parseTimeStr(field.raw, date)
		if err != nil {
			return Times{}, fmt.Errorf("failed to parse time for %s (%q): %w", field.name, field.raw, err)
		}
		*field.dst = instant
	}

	return t, nil
}

// parseTimeStr parses a time string like "15:02" or "15:02 (BST)" into an
// instant on the given date in the date's own location.
func parseTimeStr(raw string, date time.Time) (time.Time, error) {
	// Strip timezone suffix like " (BST)" that the API sometimes appends.
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, " "); idx != -1 {
		s = s[:idx]
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %q", raw)
	}

	var hour, min int
	if _, err := fmt.Sscanf(parts[0], "%d", &hour); err != nil {
		return time.Time{}, fmt.Errorf("invalid hour in %q: %w", raw, err)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &min); err != nil {
		return time.Time{}, fmt.Errorf("invalid minute in %q: %w", raw, err)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, 0, 0, date.Location()), nil
}
