package admission

import "errors"

var (
	// ErrDeniedLowBattery is returned when the battery level is below the floor.
	ErrDeniedLowBattery = errors.New("denied: battery level too low")
	// ErrDeniedRateLimited is returned when reserve_delay has not elapsed.
	ErrDeniedRateLimited = errors.New("denied: rate limited")
	// ErrDeniedInsufficientPower is returned when avail does not cover the amount.
	ErrDeniedInsufficientPower = errors.New("denied")
	// ErrDeniedLimitExceeded is returned when a P1 grant would exceed the deficit limit.
	ErrDeniedLimitExceeded = errors.New("denied: deficit limit exceeded")
	// ErrNotFound is returned by release when no reservation matches.
	ErrNotFound = errors.New("reservation not found")
	// ErrInvalidRequest is returned for malformed calls.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrConfigInvalid is returned for invalid settings.
	ErrConfigInvalid = errors.New("invalid configuration")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrDeniedLowBattery, "denied_low_battery"},
	{ErrDeniedRateLimited, "denied_rate_limited"},
	{ErrDeniedInsufficientPower, "denied_insufficient_power"},
	{ErrDeniedLimitExceeded, "denied_limit_exceeded"},
	{ErrNotFound, "not_found"},
	{ErrInvalidRequest, "invalid_request"},
	{ErrConfigInvalid, "config_invalid"},
}

// Code returns the stable wire code of err. A nil error maps to "ok" and
// unknown errors to "internal".
func Code(err error) string {
	if err == nil {
		return "ok"
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

// ErrorFromCode maps a wire code back to its sentinel error.
func ErrorFromCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}

// IsDenied reports whether err is an admission denial.
func IsDenied(err error) bool {
	return errors.Is(err, ErrDeniedLowBattery) ||
		errors.Is(err, ErrDeniedRateLimited) ||
		errors.Is(err, ErrDeniedInsufficientPower) ||
		errors.Is(err, ErrDeniedLimitExceeded)
}
