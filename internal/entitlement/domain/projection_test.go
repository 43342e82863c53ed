package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 1, 0)
	past := now.AddDate(0, -1, 0)

	t.Run("nil record reads as none", func(t *testing.T) {
		assert.Equal(t, StatusNone, EffectiveStatus(nil, now))
	})

	t.Run("active within period", func(t *testing.T) {
		e := &Entitlement{Status: StatusActive, EndAt: &future}
		assert.Equal(t, StatusActive, EffectiveStatus(e, now))
	})

	t.Run("stored active past end reads as expired", func(t *testing.T) {
		e := &Entitlement{Status: StatusActive, EndAt: &past}
		assert.Equal(t, StatusExpired, EffectiveStatus(e, now))
	})

	t.Run("end instant itself counts as expired", func(t *testing.T) {
		e := &Entitlement{Status: StatusActive, EndAt: &now}
		assert.Equal(t, StatusExpired, EffectiveStatus(e, now))
	})

	t.Run("suspended wins over elapsed period", func(t *testing.T) {
		e := &Entitlement{Status: StatusSuspended, EndAt: &past}
		assert.Equal(t, StatusSuspended, EffectiveStatus(e, now))
	})

	t.Run("stored expired stays expired", func(t *testing.T) {
		e := &Entitlement{Status: StatusExpired, EndAt: &future}
		assert.Equal(t, StatusExpired, EffectiveStatus(e, now))
	})
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("nil end clamps to zero", func(t *testing.T) {
		assert.Equal(t, 0, DaysRemaining(&Entitlement{Status: StatusActive}, now))
	})

	t.Run("whole days", func(t *testing.T) {
		end := now.Add(72 * time.Hour)
		assert.Equal(t, 3, DaysRemaining(&Entitlement{EndAt: &end}, now))
	})

	t.Run("partial day rounds up", func(t *testing.T) {
		end := now.Add(25 * time.Hour)
		assert.Equal(t, 2, DaysRemaining(&Entitlement{EndAt: &end}, now))
	})

	t.Run("an hour left still counts as a day", func(t *testing.T) {
		end := now.Add(time.Hour)
		assert.Equal(t, 1, DaysRemaining(&Entitlement{EndAt: &end}, now))
	})

	t.Run("elapsed period clamps to zero", func(t *testing.T) {
		end := now.Add(-time.Hour)
		assert.Equal(t, 0, DaysRemaining(&Entitlement{EndAt: &end}, now))
	})
}

func TestCanRenew(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	const window = 7

	t.Run("active outside window", func(t *testing.T) {
		end := now.AddDate(0, 0, 20)
		e := &Entitlement{Status: StatusActive, EndAt: &end}
		assert.False(t, CanRenew(e, now, window))
	})

	t.Run("active inside window", func(t *testing.T) {
		end := now.AddDate(0, 0, 5)
		e := &Entitlement{Status: StatusActive, EndAt: &end}
		assert.True(t, CanRenew(e, now, window))
	})

	t.Run("lapsed can always renew", func(t *testing.T) {
		end := now.AddDate(0, -2, 0)
		e := &Entitlement{Status: StatusActive, EndAt: &end}
		assert.True(t, CanRenew(e, now, window))
	})

	t.Run("suspended cannot renew", func(t *testing.T) {
		end := now.AddDate(0, 0, 2)
		e := &Entitlement{Status: StatusSuspended, EndAt: &end}
		assert.False(t, CanRenew(e, now, window))
	})

	t.Run("no record cannot renew", func(t *testing.T) {
		assert.False(t, CanRenew(nil, now, window))
	})
}
