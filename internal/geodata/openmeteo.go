package geodata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/camroute/fare-engine/pkg/config"
	"github.com/camroute/fare-engine/pkg/geo"
	"github.com/camroute/fare-engine/pkg/httpclient"
)

// OpenMeteoClient fetches current weather from the Open-Meteo forecast API.
// No authentication is required.
type OpenMeteoClient struct {
	http     *httpclient.Client
	timezone string
}

// NewOpenMeteoClient builds a client from provider configuration.
func NewOpenMeteoClient(cfg *config.WeatherConfig) *OpenMeteoClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return &OpenMeteoClient{
		http:     httpclient.NewClient(cfg.BaseURL, timeout, httpclient.WithDefaultRetry()),
		timezone: cfg.Timezone,
	}
}

type forecastResponse struct {
	Current struct {
		WeatherCode   int     `json:"weathercode"`
		Precipitation float64 `json:"precipitation"`
	} `json:"current"`
}

// CurrentWeatherCode returns the current weather at a coordinate on the
// project 0-3 scale.
func (o *OpenMeteoClient) CurrentWeatherCode(ctx context.Context, c geo.Coordinate) (int, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(c.Lat, 'f', 4, 64))
	query.Set("longitude", strconv.FormatFloat(c.Lon, 'f', 4, 64))
	query.Set("current", "weathercode,precipitation,rain,temperature_2m")
	query.Set("timezone", o.timezone)

	body, err := o.http.Get(ctx, "/forecast?"+query.Encode(), nil)
	if err != nil {
		return WeatherUnknown, fmt.Errorf("open-meteo: %w", err)
	}

	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return WeatherUnknown, fmt.Errorf("open-meteo: decode: %w", err)
	}

	return ProjectWeatherCode(resp.Current.WeatherCode, resp.Current.Precipitation), nil
}

// ProjectWeatherCode maps a WMO weather code (0-99) plus the measured
// precipitation rate in mm/h onto the project 0-3 scale. Thunderstorms win;
// precipitation refines the ambiguous middle codes.
func ProjectWeatherCode(wmoCode int, precipitationMmH float64) int {
	switch {
	case wmoCode >= 95 && wmoCode <= 99:
		return WeatherStorm
	case (wmoCode >= 66 && wmoCode <= 82) || precipitationMmH > 10.0:
		return WeatherHeavyRain
	case (wmoCode >= 51 && wmoCode <= 65) || precipitationMmH > 0:
		return WeatherLightRain
	default:
		// Clear, cloudy or fog without rain; unknown codes default dry
		return WeatherClear
	}
}
