package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// ErrNoLocation is returned when a sun-relative boundary is used without a
// configured location.
var ErrNoLocation = errors.New("sun-relative time requires a location")

// Resolver turns boundary specs such as "06:30", "sunrise+30" or "sunset-15"
// into absolute times for a given date.
type Resolver struct {
	lat, lon    float64
	hasLocation bool
}

// NewResolver parses a "lat,lon" location. An empty location only allows
// HH:MM boundaries.
func NewResolver(location string) (*Resolver, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return &Resolver{}, nil
	}
	parts := strings.Split(location, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid location %q: expected lat,lon", location)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("invalid latitude in %q", location)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("invalid longitude in %q", location)
	}
	return &Resolver{lat: lat, lon: lon, hasLocation: true}, nil
}

// Resolve returns the boundary time on the day of date, in date's location.
func (r *Resolver) Resolve(spec string, date time.Time) (time.Time, error) {
	spec = strings.ToLower(strings.TrimSpace(spec))
	for _, base := range []string{"sunrise", "sunset"} {
		if strings.HasPrefix(spec, base) {
			return r.sun(base, strings.TrimPrefix(spec, base), date)
		}
	}
	return clockTime(spec, date)
}

func (r *Resolver) sun(base, offset string, date time.Time) (time.Time, error) {
	if !r.hasLocation {
		return time.Time{}, ErrNoLocation
	}
	var mins int
	if offset != "" {
		v, err := strconv.Atoi(strings.TrimSpace(offset))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid %s offset %q", base, offset)
		}
		mins = v
	}
	rise, set := sunrise.SunriseSunset(r.lat, r.lon, date.Year(), date.Month(), date.Day())
	t := rise
	if base == "sunset" {
		t = set
	}
	if t.IsZero() {
		return time.Time{}, fmt.Errorf("no %s on %s at this location", base, date.Format("2006-01-02"))
	}
	return t.In(date.Location()).Add(time.Duration(mins) * time.Minute), nil
}

func clockTime(spec string, date time.Time) (time.Time, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("invalid time %q: expected HH:MM", spec)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return time.Time{}, fmt.Errorf("invalid hour in %q", spec)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return time.Time{}, fmt.Errorf("invalid minute in %q", spec)
	}
	y, mo, d := date.Date()
	return time.Date(y, mo, d, h, m, 0, 0, date.Location()), nil
}
