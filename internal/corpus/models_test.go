package corpus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeOfDayFor(t *testing.T) {
	tests := []struct {
		name string
		hour int
		min  int
		want string
	}{
		{name: "early morning is night", hour: 5, min: 59, want: TimeNight},
		{name: "morning starts at six", hour: 6, min: 0, want: TimeMorning},
		{name: "late morning", hour: 11, min: 59, want: TimeMorning},
		{name: "noon is afternoon", hour: 12, min: 0, want: TimeAfternoon},
		{name: "late afternoon", hour: 16, min: 59, want: TimeAfternoon},
		{name: "evening starts at five", hour: 17, min: 0, want: TimeEvening},
		{name: "last evening minute", hour: 19, min: 29, want: TimeEvening},
		{name: "half past seven is night", hour: 19, min: 30, want: TimeNight},
		{name: "midnight", hour: 0, min: 0, want: TimeNight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := time.Date(2026, 8, 28, tt.hour, tt.min, 0, 0, time.UTC)
			assert.Equal(t, tt.want, TimeOfDayFor(ts))
		})
	}
}

func TestOppositeTimeOfDay(t *testing.T) {
	assert.Equal(t, TimeNight, OppositeTimeOfDay(TimeMorning))
	assert.Equal(t, TimeNight, OppositeTimeOfDay(TimeAfternoon))
	assert.Equal(t, TimeNight, OppositeTimeOfDay(TimeEvening))
	assert.Equal(t, TimeMorning, OppositeTimeOfDay(TimeNight))
	assert.Equal(t, "", OppositeTimeOfDay(""))
}

func TestTrip_HasContext(t *testing.T) {
	clear := 0

	trip := &Trip{}
	assert.False(t, trip.HasContext())

	trip.TimeOfDay = TimeMorning
	assert.False(t, trip.HasContext())

	trip.WeatherCode = &clear
	assert.True(t, trip.HasContext())

	trip.TimeOfDay = ""
	assert.False(t, trip.HasContext())
}

func TestAreaRef_Empty(t *testing.T) {
	assert.True(t, AreaRef{}.Empty())
	assert.False(t, AreaRef{Neighborhood: "Ekounou"}.Empty())
	assert.False(t, AreaRef{District: "Yaoundé IV"}.Empty())
}
