package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMeters(t *testing.T) {
	akwa := Coordinate{Lat: 4.0469, Lon: 9.6971}
	bonaberi := Coordinate{Lat: 4.0736, Lon: 9.6684}

	d := HaversineMeters(akwa, bonaberi)

	// Roughly 4.4 km across the Wouri
	assert.InDelta(t, 4370, d, 200)
}

func TestHaversineMeters_SamePoint(t *testing.T) {
	p := Coordinate{Lat: 4.0511, Lon: 9.7679}
	assert.Equal(t, 0.0, HaversineMeters(p, p))
}

func TestHaversineMeters_Symmetric(t *testing.T) {
	a := Coordinate{Lat: 4.0511, Lon: 9.7679}
	b := Coordinate{Lat: 3.8480, Lon: 11.5021}

	assert.InDelta(t, HaversineMeters(a, b), HaversineMeters(b, a), 1e-9)
}

func TestHaversineKm_Rounds(t *testing.T) {
	a := Coordinate{Lat: 4.0, Lon: 9.7}
	b := Coordinate{Lat: 4.1, Lon: 9.7}

	// One tenth of a degree of latitude is about 11.12 km
	assert.InDelta(t, 11.12, HaversineKm(a, b), 0.05)
}

func TestEstimateDurationSeconds(t *testing.T) {
	// 30 km at 30 km/h takes an hour
	assert.InDelta(t, 3600, EstimateDurationSeconds(30000), 1e-9)
	assert.Equal(t, 0.0, EstimateDurationSeconds(0))
}

func TestBearingDelta(t *testing.T) {
	tests := []struct {
		name   string
		before float64
		after  float64
		want   float64
	}{
		{name: "no turn", before: 90, after: 90, want: 0},
		{name: "right angle", before: 0, after: 90, want: 90},
		{name: "wraps around north", before: 350, after: 10, want: 20},
		{name: "u-turn", before: 0, after: 180, want: 180},
		{name: "reflex picks smaller side", before: 10, after: 250, want: 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, BearingDelta(tt.before, tt.after), 1e-9)
		})
	}
}
