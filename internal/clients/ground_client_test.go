package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGroundTestClient(baseURL, apiKey string) *GroundClient {
	return NewGroundClient(baseURL, apiKey, 2*time.Second, newTestLogger(), testMetrics)
}

func TestGroundClient_Readings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		assert.NotEmpty(t, r.URL.Query().Get("coordinates"))
		assert.Equal(t, "10000", r.URL.Query().Get("radius"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"results": [
				{"measurements": [
					{"parameter": "pm25", "value": 12},
					{"parameter": "o3", "value": 40}
				]},
				{"measurements": [
					{"parameter": "pm25", "value": 18}
				]}
			]
		}`)
	}))
	defer server.Close()

	client := newGroundTestClient(server.URL, "secret")

	reading, err := client.Readings(context.Background(), newYork)
	require.NoError(t, err)

	require.NotNil(t, reading.PM25)
	assert.InDelta(t, 15, *reading.PM25, 1e-9)
	require.NotNil(t, reading.O3)
	assert.InDelta(t, 40, *reading.O3, 1e-9)
	assert.Nil(t, reading.NO2)
	assert.Equal(t, "ground-stations", reading.Source)
}

func TestGroundClient_NoStationsInRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results": []}`)
	}))
	defer server.Close()

	client := newGroundTestClient(server.URL, "")

	_, err := client.Readings(context.Background(), newYork)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ground measurements")
}

func TestGroundClient_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newGroundTestClient(server.URL, "")

	_, err := client.Readings(context.Background(), newYork)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestGroundClient_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newGroundTestClient(server.URL, "")
	assert.True(t, client.HealthCheck(context.Background()))

	server.Close()
	assert.False(t, client.HealthCheck(context.Background()))
}
