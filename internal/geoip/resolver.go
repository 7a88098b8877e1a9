// Package geoip resolves an IP address to a coarse location using the ipapi.co
// JSON API. Lookups are bounded by a timeout and never fail the caller.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"parcelview/internal/models"
)

const (
	CountryLocal   = "Local/Development"
	CountryUnknown = "Unknown"

	DefaultBaseURL = "https://ipapi.co"
	DefaultTimeout = 3 * time.Second
)

type Resolver struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

func NewResolver(baseURL string, timeout time.Duration, client *http.Client, logger *zap.Logger) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  client,
		logger:  logger,
	}
}

// IsLocal reports whether ip is a sentinel or private address that is never
// sent to the geolocation provider.
func IsLocal(ip string) bool {
	switch ip {
	case "", "unknown", "localhost", "127.0.0.1":
		return true
	}
	return strings.HasPrefix(ip, "192.168.") || strings.HasPrefix(ip, "10.")
}

type ipapiResponse struct {
	CountryName string   `json:"country_name"`
	Region      string   `json:"region"`
	City        string   `json:"city"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Error       bool     `json:"error"`
	Reason      string   `json:"reason"`
}

func (r *Resolver) Resolve(ctx context.Context, ip string) models.Location {
	if IsLocal(ip) {
		return countryOnly(CountryLocal)
	}

	body, err := r.lookup(ctx, ip)
	if err != nil {
		r.logger.Warn("geolocation lookup failed", zap.String("ip", ip), zap.Error(err))
		return countryOnly(CountryUnknown)
	}

	loc := models.Location{
		Country: optional(body.CountryName),
		Region:  optional(body.Region),
		City:    optional(body.City),
	}
	if body.Latitude != nil && body.Longitude != nil {
		loc.Coords = &models.Coords{Lat: *body.Latitude, Lng: *body.Longitude}
	}
	return loc
}

func (r *Resolver) lookup(ctx context.Context, ip string) (*ipapiResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/%s/json/", r.baseURL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("geolocation service returned %d", resp.StatusCode)
	}

	var body ipapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode geolocation response: %w", err)
	}
	if body.Error {
		return nil, fmt.Errorf("geolocation service error: %s", body.Reason)
	}

	return &body, nil
}

func countryOnly(country string) models.Location {
	return models.Location{Country: &country}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
