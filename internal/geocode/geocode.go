// Package geocode resolves postal codes and addresses through a Nominatim
// compatible search endpoint.
//
// Every lookup is a single attempt. Failures never surface as errors: a
// postal code falls back to a fixed coordinate in New Jersey, an address
// reports no match and autocomplete returns an empty list.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	FallbackLatitude  = 40.0583
	FallbackLongitude = -74.4057

	DefaultEndpoint  = "https://nominatim.openstreetmap.org/search"
	DefaultUserAgent = "BiodivProScopeApp/1.0"
	DefaultRegion    = "New Jersey"

	autocompleteLimit = 5
	maxResponseBytes  = 1 << 20
)

// Geocoder is the lookup surface the HTTP layer depends on.
type Geocoder interface {
	LatLonFromZip(ctx context.Context, zip string) (float64, float64)
	LatLonFromAddress(ctx context.Context, address string) (Match, bool)
	Autocomplete(ctx context.Context, query string) []Suggestion
}

type Match struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	ZipCode     *string `json:"zip_code"`
	DisplayName string  `json:"display_name"`
}

type Suggestion struct {
	DisplayName string `json:"display_name"`
}

type Config struct {
	Endpoint     string
	UserAgent    string
	CountryCodes string
	// Region filters autocomplete suggestions by substring. Empty disables the filter.
	Region     string
	Timeout    time.Duration
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	endpoint     string
	userAgent    string
	countryCodes string
	region       string
	http         *http.Client
	cache        *cache.Cache
	logger       *slog.Logger
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.CountryCodes == "" {
		cfg.CountryCodes = "us"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:     cfg.Endpoint,
		userAgent:    cfg.UserAgent,
		countryCodes: cfg.CountryCodes,
		region:       cfg.Region,
		http:         httpClient,
		cache:        cache.New(cfg.CacheTTL, cfg.CacheTTL*2),
		logger:       logger.With("service", "geocode"),
	}
}

// LatLonFromZip never fails; unresolvable codes map to the fallback coordinate.
func (c *Client) LatLonFromZip(ctx context.Context, zip string) (float64, float64) {
	zip = strings.TrimSpace(zip)
	key := "zip:" + zip
	if cached, found := c.cache.Get(key); found {
		coords := cached.([2]float64)
		return coords[0], coords[1]
	}

	places, err := c.search(ctx, url.Values{"postalcode": {zip}})
	if err != nil {
		c.logger.Warn("zip code lookup failed", "zip", zip, "error", err)
		return FallbackLatitude, FallbackLongitude
	}
	if len(places) == 0 {
		return FallbackLatitude, FallbackLongitude
	}
	lat, lon, err := places[0].coordinates()
	if err != nil {
		c.logger.Warn("zip code lookup returned bad coordinates", "zip", zip, "error", err)
		return FallbackLatitude, FallbackLongitude
	}
	c.cache.Set(key, [2]float64{lat, lon}, cache.DefaultExpiration)
	return lat, lon
}

// LatLonFromAddress returns the first match and an estimated zip code taken
// from the second-to-last component of the display name.
func (c *Client) LatLonFromAddress(ctx context.Context, address string) (Match, bool) {
	address = strings.TrimSpace(address)
	key := "addr:" + address
	if cached, found := c.cache.Get(key); found {
		return cached.(Match), true
	}

	places, err := c.search(ctx, url.Values{"q": {address}})
	if err != nil {
		c.logger.Warn("address lookup failed", "error", err)
		return Match{}, false
	}
	if len(places) == 0 {
		c.logger.Debug("no results found for the address")
		return Match{}, false
	}
	lat, lon, err := places[0].coordinates()
	if err != nil {
		c.logger.Warn("address lookup returned bad coordinates", "error", err)
		return Match{}, false
	}
	match := Match{
		Latitude:    lat,
		Longitude:   lon,
		ZipCode:     zipEstimate(places[0].DisplayName),
		DisplayName: places[0].DisplayName,
	}
	c.cache.Set(key, match, cache.DefaultExpiration)
	return match, true
}

// Autocomplete returns at most five suggestions inside the configured region.
// A blank query returns an empty list without contacting the service.
func (c *Client) Autocomplete(ctx context.Context, query string) []Suggestion {
	query = strings.TrimSpace(query)
	suggestions := []Suggestion{}
	if query == "" {
		return suggestions
	}
	key := "ac:" + query
	if cached, found := c.cache.Get(key); found {
		return cached.([]Suggestion)
	}

	places, err := c.search(ctx, url.Values{"q": {query}, "limit": {strconv.Itoa(autocompleteLimit)}})
	if err != nil {
		c.logger.Warn("autocomplete lookup failed", "error", err)
		return suggestions
	}
	for _, p := range places {
		if c.region != "" && !strings.Contains(p.DisplayName, c.region) {
			continue
		}
		suggestions = append(suggestions, Suggestion{DisplayName: p.DisplayName})
		if len(suggestions) == autocompleteLimit {
			break
		}
	}
	c.cache.Set(key, suggestions, cache.DefaultExpiration)
	return suggestions
}

func (c *Client) Flush() {
	c.cache.Flush()
}

func (c *Client) search(ctx context.Context, params url.Values) ([]place, error) {
	params.Set("countrycodes", c.countryCodes)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching geocoding data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("received non-200 response: %d", resp.StatusCode)
	}

	var places []place
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&places); err != nil {
		return nil, fmt.Errorf("error decoding geocoding response: %w", err)
	}
	return places, nil
}

func (p place) coordinates() (float64, float64, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(p.Lat), 64)
	if err != nil {
		return 0, 0, err
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(p.Lon), 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func zipEstimate(displayName string) *string {
	parts := strings.Split(displayName, ",")
	if len(parts) < 2 {
		return nil
	}
	zip := strings.TrimSpace(parts[len(parts)-2])
	return &zip
}
