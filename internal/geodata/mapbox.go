package geodata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/camroute/fare-engine/pkg/common"
	"github.com/camroute/fare-engine/pkg/config"
	"github.com/camroute/fare-engine/pkg/geo"
	"github.com/camroute/fare-engine/pkg/httpclient"
	"github.com/camroute/fare-engine/pkg/logger"
	"go.uber.org/zap"
)

// maxMatrixCoordinates is the provider's hard limit per Matrix request,
// source included.
const maxMatrixCoordinates = 25

// MapboxClient calls the Mapbox Directions, Matrix, Isochrone and Geocoding
// APIs. Coordinates are sent as lon,lat per the provider convention.
type MapboxClient struct {
	http    *httpclient.Client
	token   string
	profile string
}

// NewMapboxClient builds a client from provider configuration.
func NewMapboxClient(cfg *config.MapboxConfig) *MapboxClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return &MapboxClient{
		http:    httpclient.NewClient(cfg.BaseURL, timeout, httpclient.WithDefaultRetry()),
		token:   cfg.AccessToken,
		profile: cfg.Profile,
	}
}

func (m *MapboxClient) coordPair(c geo.Coordinate) string {
	return fmt.Sprintf("%f,%f", c.Lon, c.Lat)
}

func (m *MapboxClient) coordPath(coords []geo.Coordinate) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = m.coordPair(c)
	}
	return strings.Join(parts, ";")
}

type directionsResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Legs     []struct {
			Steps []struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
				Name     string  `json:"name"`
				Maneuver struct {
					Type          string  `json:"type"`
					Modifier      string  `json:"modifier"`
					BearingBefore float64 `json:"bearing_before"`
					BearingAfter  float64 `json:"bearing_after"`
				} `json:"maneuver"`
				Intersections []struct {
					MapboxStreetsV8 struct {
						Class string `json:"class"`
					} `json:"mapbox_streets_v8"`
				} `json:"intersections"`
			} `json:"steps"`
			Annotation struct {
				Congestion []string `json:"congestion"`
			} `json:"annotation"`
		} `json:"legs"`
	} `json:"routes"`
}

// noRouteCodes are Directions/Matrix response codes meaning the road network
// cannot connect the requested points at all.
var noRouteCodes = map[string]bool{
	"NoRoute":   true,
	"NoSegment": true,
}

// Directions routes between two coordinates with steps and congestion
// annotations, as needed by both estimation and trip enrichment.
func (m *MapboxClient) Directions(ctx context.Context, from, to geo.Coordinate) (*Route, error) {
	query := url.Values{}
	query.Set("geometries", "geojson")
	query.Set("steps", "true")
	query.Set("overview", "full")
	query.Set("annotations", "congestion,distance,duration")
	query.Set("access_token", m.token)

	path := fmt.Sprintf("/directions/v5/mapbox/%s/%s?%s",
		m.profile, m.coordPath([]geo.Coordinate{from, to}), query.Encode())

	body, err := m.http.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("mapbox directions: %w", err)
	}

	var resp directionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("mapbox directions: decode: %w", err)
	}

	if noRouteCodes[resp.Code] {
		return nil, fmt.Errorf("%w: %s", common.ErrNoRouteFound, resp.Message)
	}
	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		return nil, fmt.Errorf("mapbox directions: code %q: %s", resp.Code, resp.Message)
	}

	raw := resp.Routes[0]
	route := &Route{
		DistanceM: raw.Distance,
		DurationS: raw.Duration,
	}
	for _, leg := range raw.Legs {
		for _, s := range leg.Steps {
			class := ""
			for _, intersection := range s.Intersections {
				if intersection.MapboxStreetsV8.Class != "" {
					class = intersection.MapboxStreetsV8.Class
					break
				}
			}
			route.Steps = append(route.Steps, RouteStep{
				DistanceM: s.Distance,
				DurationS: s.Duration,
				Name:      s.Name,
				Class:     class,
				Maneuver: Maneuver{
					Type:          s.Maneuver.Type,
					Modifier:      s.Maneuver.Modifier,
					BearingBefore: s.Maneuver.BearingBefore,
					BearingAfter:  s.Maneuver.BearingAfter,
				},
			})
		}
		route.Congestion = append(route.Congestion, leg.Annotation.Congestion...)
	}

	m.warnOnUnknownCongestion(route)
	return route, nil
}

// warnOnUnknownCongestion logs when coverage is too sparse to trust the
// congestion annotations. Common outside the city centres.
func (m *MapboxClient) warnOnUnknownCongestion(route *Route) {
	if len(route.Congestion) == 0 {
		return
	}
	unknown := 0
	for _, c := range route.Congestion {
		if _, ok := congestionScale[c]; !ok {
			unknown++
		}
	}
	rate := float64(unknown) / float64(len(route.Congestion))
	if rate > 0.85 {
		logger.Warn("mapbox congestion coverage sparse",
			zap.Float64("unknown_rate", rate),
			zap.Int("segments", len(route.Congestion)),
		)
	}
}

type matrixResponse struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Distances [][]float64 `json:"distances"`
	Durations [][]float64 `json:"durations"`
}

// Matrix returns routed distances and durations from one source to up to 24
// destinations in a single round trip. Longer destination lists must be
// batched by the caller.
func (m *MapboxClient) Matrix(ctx context.Context, source geo.Coordinate, destinations []geo.Coordinate) (*Matrix, error) {
	if len(destinations) == 0 {
		return &Matrix{}, nil
	}
	if len(destinations) > maxMatrixCoordinates-1 {
		return nil, fmt.Errorf("mapbox matrix: %d destinations exceeds limit %d",
			len(destinations), maxMatrixCoordinates-1)
	}

	coords := append([]geo.Coordinate{source}, destinations...)

	destIdx := make([]string, len(destinations))
	for i := range destinations {
		destIdx[i] = strconv.Itoa(i + 1)
	}

	query := url.Values{}
	query.Set("sources", "0")
	query.Set("destinations", strings.Join(destIdx, ";"))
	query.Set("annotations", "distance,duration")
	query.Set("access_token", m.token)

	path := fmt.Sprintf("/directions-matrix/v1/mapbox/%s/%s?%s",
		m.profile, m.coordPath(coords), query.Encode())

	body, err := m.http.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("mapbox matrix: %w", err)
	}

	var resp matrixResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("mapbox matrix: decode: %w", err)
	}
	if resp.Code != "Ok" {
		return nil, fmt.Errorf("mapbox matrix: code %q: %s", resp.Code, resp.Message)
	}
	if len(resp.Distances) == 0 || len(resp.Distances[0]) != len(destinations) {
		return nil, fmt.Errorf("mapbox matrix: unexpected shape")
	}

	result := &Matrix{DistancesM: resp.Distances[0]}
	if len(resp.Durations) > 0 {
		result.DurationsS = resp.Durations[0]
	}
	return result, nil
}

type isochroneResponse struct {
	Type     string `json:"type"`
	Features []struct {
		Geometry struct {
			Type        string        `json:"type"`
			Coordinates [][][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Isochrone returns the polygon reachable from center within the given
// minutes of driving.
func (m *MapboxClient) Isochrone(ctx context.Context, center geo.Coordinate, minutes int) (geo.PolygonRegion, error) {
	query := url.Values{}
	query.Set("contours_minutes", strconv.Itoa(minutes))
	query.Set("polygons", "true")
	query.Set("denoise", "0.5")
	query.Set("generalize", "10")
	query.Set("access_token", m.token)

	path := fmt.Sprintf("/isochrone/v1/mapbox/%s/%s?%s",
		m.profile, m.coordPair(center), query.Encode())

	body, err := m.http.Get(ctx, path, nil)
	if err != nil {
		return geo.PolygonRegion{}, fmt.Errorf("mapbox isochrone: %w", err)
	}

	var resp isochroneResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return geo.PolygonRegion{}, fmt.Errorf("mapbox isochrone: decode: %w", err)
	}
	if resp.Type != "FeatureCollection" || len(resp.Features) == 0 {
		return geo.PolygonRegion{}, fmt.Errorf("mapbox isochrone: empty feature collection")
	}

	outer := resp.Features[0].Geometry.Coordinates
	if len(outer) == 0 || len(outer[0]) < 3 {
		return geo.PolygonRegion{}, fmt.Errorf("mapbox isochrone: degenerate polygon")
	}

	ring := make([]geo.Coordinate, 0, len(outer[0]))
	for _, pair := range outer[0] {
		if len(pair) != 2 {
			continue
		}
		ring = append(ring, geo.Coordinate{Lat: pair[1], Lon: pair[0]})
	}
	return geo.NewPolygonRegion(ring), nil
}

type reverseGeocodeResponse struct {
	Type     string `json:"type"`
	Features []struct {
		Properties struct {
			Name    string `json:"name"`
			Context struct {
				Locality struct {
					Name string `json:"name"`
				} `json:"locality"`
				Place struct {
					Name string `json:"name"`
				} `json:"place"`
				District struct {
					Name string `json:"name"`
				} `json:"district"`
				Region struct {
					Name string `json:"name"`
				} `json:"region"`
			} `json:"context"`
		} `json:"properties"`
	} `json:"features"`
}

// ReverseGeocode resolves the administrative context of a coordinate.
func (m *MapboxClient) ReverseGeocode(ctx context.Context, c geo.Coordinate) (*AdministrativeInfo, error) {
	query := url.Values{}
	query.Set("longitude", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	query.Set("latitude", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	query.Set("limit", "1")
	query.Set("language", "fr")
	query.Set("access_token", m.token)

	path := "/search/geocode/v6/reverse?" + query.Encode()

	body, err := m.http.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("mapbox reverse geocode: %w", err)
	}

	var resp reverseGeocodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("mapbox reverse geocode: decode: %w", err)
	}
	if resp.Type != "FeatureCollection" {
		return nil, fmt.Errorf("mapbox reverse geocode: unexpected response type %q", resp.Type)
	}
	if len(resp.Features) == 0 {
		// Unmapped area, not an error
		return &AdministrativeInfo{}, nil
	}

	props := resp.Features[0].Properties
	return &AdministrativeInfo{
		Label:        props.Name,
		Neighborhood: props.Context.Locality.Name,
		City:         props.Context.Place.Name,
		District:     props.Context.District.Name,
		Department:   props.Context.Region.Name,
	}, nil
}
