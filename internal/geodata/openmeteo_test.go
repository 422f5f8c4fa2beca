package geodata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camroute/fare-engine/pkg/config"
	"github.com/camroute/fare-engine/pkg/geo"
)

func TestOpenMeteoClient_CurrentWeatherCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "Africa/Douala", r.URL.Query().Get("timezone"))

		w.Write([]byte(`{
			"latitude": 3.85,
			"longitude": 11.50,
			"current": {"time": "2026-08-28T14:00", "weathercode": 61, "precipitation": 2.5}
		}`))
	}))
	defer server.Close()

	client := NewOpenMeteoClient(&config.WeatherConfig{
		BaseURL:        server.URL,
		Timezone:       "Africa/Douala",
		TimeoutSeconds: 2,
	})

	code, err := client.CurrentWeatherCode(context.Background(), geo.Coordinate{Lat: 3.8547, Lon: 11.5021})

	require.NoError(t, err)
	assert.Equal(t, WeatherLightRain, code)
}

func TestOpenMeteoClient_CurrentWeatherCode_ProviderDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewOpenMeteoClient(&config.WeatherConfig{
		BaseURL:        server.URL,
		Timezone:       "Africa/Douala",
		TimeoutSeconds: 2,
	})

	code, err := client.CurrentWeatherCode(context.Background(), geo.Coordinate{Lat: 3.85, Lon: 11.50})

	assert.Error(t, err)
	assert.Equal(t, WeatherUnknown, code)
}

func TestProjectWeatherCode(t *testing.T) {
	tests := []struct {
		name          string
		wmo           int
		precipitation float64
		want          int
	}{
		{name: "clear sky", wmo: 0, precipitation: 0, want: WeatherClear},
		{name: "partly cloudy", wmo: 2, precipitation: 0, want: WeatherClear},
		{name: "fog without rain", wmo: 45, precipitation: 0, want: WeatherClear},
		{name: "drizzle", wmo: 53, precipitation: 0.4, want: WeatherLightRain},
		{name: "moderate rain", wmo: 63, precipitation: 3.0, want: WeatherLightRain},
		{name: "trace precipitation on clear code", wmo: 1, precipitation: 0.8, want: WeatherLightRain},
		{name: "freezing rain", wmo: 66, precipitation: 4.0, want: WeatherHeavyRain},
		{name: "violent showers", wmo: 82, precipitation: 12.0, want: WeatherHeavyRain},
		{name: "downpour on ambiguous code", wmo: 3, precipitation: 15.0, want: WeatherHeavyRain},
		{name: "thunderstorm", wmo: 95, precipitation: 20.0, want: WeatherStorm},
		{name: "thunderstorm with hail", wmo: 99, precipitation: 30.0, want: WeatherStorm},
		{name: "unknown code defaults dry", wmo: 120, precipitation: 0, want: WeatherClear},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProjectWeatherCode(tt.wmo, tt.precipitation))
		})
	}
}
