package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/kilianp07/pa/core/model"
)

func at(h, m int) time.Time {
	return time.Date(2024, 3, 10, h, m, 0, 0, time.UTC)
}

func TestInWindowCrossingMidnight(t *testing.T) {
	ns, ds := at(20, 0), at(6, 0)
	cases := []struct {
		now  time.Time
		want bool
	}{
		{at(19, 59), false},
		{at(20, 0), true},
		{at(23, 30), true},
		{at(0, 15), true},
		{at(5, 59), true},
		{at(6, 0), false},
		{at(12, 0), false},
	}
	for _, c := range cases {
		if got := InWindow(c.now, ns, ds); got != c.want {
			t.Errorf("%s: got %v want %v", c.now.Format("15:04"), got, c.want)
		}
	}
}

func TestInWindowSameDay(t *testing.T) {
	ns, ds := at(1, 0), at(5, 0)
	if !InWindow(at(3, 0), ns, ds) {
		t.Fatal("03:00 must be night")
	}
	if InWindow(at(23, 0), ns, ds) || InWindow(at(5, 0), ns, ds) {
		t.Fatal("outside window reported as night")
	}
}

func TestSelectorMode(t *testing.T) {
	s, err := NewSelector("06:00", "20:00", "", at(12, 0))
	if err != nil {
		t.Fatalf("selector: %v", err)
	}
	if m, _ := s.Mode(at(22, 0), 0); m != model.ModeDay {
		t.Fatal("night mode requires a night budget")
	}
	if m, _ := s.Mode(at(22, 0), 500); m != model.ModeNight {
		t.Fatal("expected night")
	}
	if m, _ := s.Mode(at(10, 0), 500); m != model.ModeDay {
		t.Fatal("expected day")
	}
}

func TestSelectorRejectsSunWithoutLocation(t *testing.T) {
	_, err := NewSelector("sunrise+30", "20:00", "", at(12, 0))
	if !errors.Is(err, ErrNoLocation) {
		t.Fatalf("expected ErrNoLocation got %v", err)
	}
}

func TestSelectorValidatesOnGivenDate(t *testing.T) {
	// Sunrise exists at the equinox but not during the polar day.
	equinox := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	if _, err := NewSelector("sunrise", "20:00", "78.2,15.6", equinox); err != nil {
		t.Fatalf("equinox: %v", err)
	}
	midsummer := time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)
	if _, err := NewSelector("sunrise", "20:00", "78.2,15.6", midsummer); err == nil {
		t.Fatal("expected no sunrise during the polar day")
	}
}

func TestResolveSunRelative(t *testing.T) {
	r, err := NewResolver("48.85, 2.35")
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	date := time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)
	rise, err := r.Resolve("sunrise", date)
	if err != nil {
		t.Fatalf("sunrise: %v", err)
	}
	later, err := r.Resolve("sunrise+30", date)
	if err != nil {
		t.Fatalf("sunrise+30: %v", err)
	}
	if later.Sub(rise) != 30*time.Minute {
		t.Fatalf("offset not applied: %v", later.Sub(rise))
	}
	set, err := r.Resolve("sunset-15", date)
	if err != nil {
		t.Fatalf("sunset: %v", err)
	}
	if !set.After(rise) {
		t.Fatalf("sunset %v before sunrise %v", set, rise)
	}
	// Paris midsummer sunrise is around 03:47 UTC.
	if rise.Hour() < 3 || rise.Hour() > 4 {
		t.Fatalf("unexpected sunrise %v", rise)
	}
}

func TestResolveInvalid(t *testing.T) {
	r, _ := NewResolver("")
	for _, spec := range []string{"25:00", "12:60", "noon", "sunrise"} {
		if _, err := r.Resolve(spec, at(0, 0)); err == nil {
			t.Errorf("expected error for %q", spec)
		}
	}
	if _, err := NewResolver("91,0"); err == nil {
		t.Fatal("expected invalid latitude")
	}
}

func TestEffective(t *testing.T) {
	if EffectiveBudget(model.ModeNight, 1000, 300) != 300 {
		t.Fatal("night budget not used")
	}
	if EffectiveBudget(model.ModeDay, 1000, 300) != 1000 {
		t.Fatal("day budget not used")
	}
	if EffectiveBudget(model.ModeNight, 1000, 0) != 1000 {
		t.Fatal("zero night budget must fall back")
	}
	if !EffectiveApproveP1(model.ModeNight, false, true) || EffectiveApproveP1(model.ModeDay, false, true) {
		t.Fatal("approve p1 selection")
	}
}
