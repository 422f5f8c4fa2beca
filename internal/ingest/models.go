package ingest

import (
	"github.com/camroute/fare-engine/pkg/geo"
)

// TripRequest is one contributed trip. Coordinates are mandatory; labels
// and context are optional and enrichment fills what it can.
type TripRequest struct {
	DepartLatitude   float64 `json:"depart_latitude" binding:"latitude"`
	DepartLongitude  float64 `json:"depart_longitude" binding:"longitude"`
	DepartLabel      string  `json:"depart_label,omitempty"`
	ArrivalLatitude  float64 `json:"arrival_latitude" binding:"latitude"`
	ArrivalLongitude float64 `json:"arrival_longitude" binding:"longitude"`
	ArrivalLabel     string  `json:"arrival_label,omitempty"`

	PriceCFA float64 `json:"price_cfa" binding:"required,gt=0"`

	TimeOfDay      string `json:"time_of_day,omitempty" binding:"omitempty,day_moment"`
	WeatherCode    *int   `json:"weather_code,omitempty" binding:"omitempty,weather_code"`
	ZoneType       *int   `json:"zone_type,omitempty" binding:"omitempty,min=0,max=2"`
	UserCongestion *int   `json:"user_congestion,omitempty" binding:"omitempty,min=1,max=10"`
}

// Depart returns the depart coordinate.
func (r *TripRequest) Depart() geo.Coordinate {
	return geo.Coordinate{Lat: r.DepartLatitude, Lon: r.DepartLongitude}
}

// Arrival returns the arrival coordinate.
func (r *TripRequest) Arrival() geo.Coordinate {
	return geo.Coordinate{Lat: r.ArrivalLatitude, Lon: r.ArrivalLongitude}
}

// Enrichment is what the route analysis contributes to a stored trip.
// Nil fields mean the route data could not support the measure.
type Enrichment struct {
	DistanceM          float64
	DurationS          *float64
	Sinuosity          *float64
	TurnCount          *int
	TurnForce          *float64
	PlatformCongestion *float64
	RoadClass          string
}
