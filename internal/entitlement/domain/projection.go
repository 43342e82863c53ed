package domain

import "time"

// EffectiveStatus projects the stored record onto the status a caller should
// act on. Expiry is never written back by reads; a stored ACTIVE record past
// its end date simply reads as EXPIRED.
func EffectiveStatus(e *Entitlement, now time.Time) Status {
	if e == nil {
		return StatusNone
	}
	switch e.Status {
	case StatusSuspended:
		return StatusSuspended
	case StatusExpired:
		return StatusExpired
	case StatusActive:
		if IsExpired(e, now) {
			return StatusExpired
		}
		return StatusActive
	}
	return StatusNone
}

// IsExpired reports whether a stored ACTIVE record's period has elapsed.
func IsExpired(e *Entitlement, now time.Time) bool {
	if e == nil || e.EndAt == nil {
		return false
	}
	return !now.Before(*e.EndAt)
}

// DaysRemaining counts whole days until the end date, rounding partial days
// up and clamping at zero.
func DaysRemaining(e *Entitlement, now time.Time) int {
	if e == nil || e.EndAt == nil {
		return 0
	}
	remaining := e.EndAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// CanRenew reports whether the shop should be offered renewal: inside the
// renewal window while active, or any time after expiry.
func CanRenew(e *Entitlement, now time.Time, renewWindowDays int) bool {
	switch EffectiveStatus(e, now) {
	case StatusActive:
		return DaysRemaining(e, now) <= renewWindowDays
	case StatusExpired:
		return true
	}
	return false
}
