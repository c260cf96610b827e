package geocode

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEndpoint = "https://nominatim.test/search"

func newTestClient(t *testing.T) *Client {
	t.Helper()
	httpClient := &http.Client{}
	httpmock.ActivateNonDefault(httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	return New(Config{
		Endpoint:   testEndpoint,
		Region:     DefaultRegion,
		Timeout:    time.Second,
		HTTPClient: httpClient,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestLatLonFromZipSuccess(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponderWithQuery(http.MethodGet, testEndpoint,
		url.Values{"postalcode": {"08540"}, "countrycodes": {"us"}, "format": {"json"}},
		httpmock.NewStringResponder(http.StatusOK, `[{"lat":"40.3487","lon":"-74.6590","display_name":"Princeton, Mercer County, New Jersey, 08540, United States"}]`))

	lat, lon := client.LatLonFromZip(context.Background(), "08540")

	assert.InDelta(t, 40.3487, lat, 1e-9)
	assert.InDelta(t, -74.6590, lon, 1e-9)

	// second call is served from cache
	client.LatLonFromZip(context.Background(), "08540")
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestLatLonFromZipFallback(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
	}{
		{"empty result", httpmock.NewStringResponder(http.StatusOK, `[]`)},
		{"server error", httpmock.NewStringResponder(http.StatusInternalServerError, `oops`)},
		{"invalid json", httpmock.NewStringResponder(http.StatusOK, `{invalid`)},
		{"bad coordinates", httpmock.NewStringResponder(http.StatusOK, `[{"lat":"north","lon":"west"}]`)},
		{"transport error", httpmock.NewErrorResponder(assert.AnError)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t)
			httpmock.RegisterResponder(http.MethodGet, testEndpoint, tt.responder)

			lat, lon := client.LatLonFromZip(context.Background(), "99999")

			assert.Equal(t, FallbackLatitude, lat)
			assert.Equal(t, FallbackLongitude, lon)
		})
	}
}

func TestLatLonFromAddress(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testEndpoint, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "1 Main St, Trenton", req.URL.Query().Get("q"))
		assert.Equal(t, DefaultUserAgent, req.Header.Get("User-Agent"))
		return httpmock.NewStringResponse(http.StatusOK,
			`[{"lat":"40.2206","lon":"-74.7597","display_name":"1, Main Street, Trenton, Mercer County, New Jersey, 08608, United States"}]`), nil
	})

	match, ok := client.LatLonFromAddress(context.Background(), "1 Main St, Trenton")

	require.True(t, ok)
	assert.InDelta(t, 40.2206, match.Latitude, 1e-9)
	assert.InDelta(t, -74.7597, match.Longitude, 1e-9)
	require.NotNil(t, match.ZipCode)
	assert.Equal(t, "08608", *match.ZipCode)
}

func TestLatLonFromAddressNoZipEstimate(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testEndpoint,
		httpmock.NewStringResponder(http.StatusOK, `[{"lat":"40","lon":"-74","display_name":"Somewhere"}]`))

	match, ok := client.LatLonFromAddress(context.Background(), "somewhere")

	require.True(t, ok)
	assert.Nil(t, match.ZipCode)
}

func TestLatLonFromAddressFailures(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
	}{
		{"no results", httpmock.NewStringResponder(http.StatusOK, `[]`)},
		{"rate limited", httpmock.NewStringResponder(http.StatusTooManyRequests, ``)},
		{"transport error", httpmock.NewErrorResponder(assert.AnError)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t)
			httpmock.RegisterResponder(http.MethodGet, testEndpoint, tt.responder)

			match, ok := client.LatLonFromAddress(context.Background(), "nowhere")

			assert.False(t, ok)
			assert.Equal(t, Match{}, match)
		})
	}
}

func TestAutocompleteFiltersRegion(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testEndpoint, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "5", req.URL.Query().Get("limit"))
		return httpmock.NewStringResponse(http.StatusOK, `[
			{"display_name":"Main Street, Trenton, New Jersey, United States"},
			{"display_name":"Main Street, Buffalo, New York, United States"},
			{"display_name":"Main Street, Newark, New Jersey, United States"}
		]`), nil
	})

	got := client.Autocomplete(context.Background(), "main street")

	assert.Equal(t, []Suggestion{
		{DisplayName: "Main Street, Trenton, New Jersey, United States"},
		{DisplayName: "Main Street, Newark, New Jersey, United States"},
	}, got)
}

func TestAutocompleteEmptyQueryMakesNoCall(t *testing.T) {
	client := newTestClient(t)

	got := client.Autocomplete(context.Background(), "   ")

	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestAutocompleteErrorReturnsEmpty(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodGet, testEndpoint, httpmock.NewStringResponder(http.StatusBadGateway, ``))

	got := client.Autocomplete(context.Background(), "main")

	assert.NotNil(t, got)
	assert.Empty(t, got)
}
