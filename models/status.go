package models

import (
	"math"
	"time"
)

// ItemStatus is the derived freshness/stock classification of an inventory
// item. It is recomputed from (quantity, expiryDate, now) at every read and
// is never persisted.
type ItemStatus string

const (
	StatusGood         ItemStatus = "GOOD"
	StatusExpiringSoon ItemStatus = "EXPIRING_SOON"
	StatusExpired      ItemStatus = "EXPIRED"
	StatusOutOfStock   ItemStatus = "OUT_OF_STOCK"
)

// ValidStatus reports whether s is one of the four known statuses.
func ValidStatus(s ItemStatus) bool {
	switch s {
	case StatusGood, StatusExpiringSoon, StatusExpired, StatusOutOfStock:
		return true
	}
	return false
}

// ClassifyStatus derives the status of an item. Rules apply in order, first
// match wins:
//
//  1. quantity 0 is OUT_OF_STOCK regardless of expiry
//  2. no expiry date is GOOD
//  3. expiry instant strictly before now is EXPIRED
//  4. expiry within 2 calendar days (midnight-truncated) is EXPIRING_SOON
//  5. otherwise GOOD
//
// Note the mix of instant comparison for EXPIRED and calendar-day comparison
// for EXPIRING_SOON: an item expiring later today is EXPIRING_SOON, not
// EXPIRED, until the exact instant has passed.
func ClassifyStatus(quantity int, expiry *time.Time, now time.Time) ItemStatus {
	if quantity == 0 {
		return StatusOutOfStock
	}
	if expiry == nil {
		return StatusGood
	}
	if expiry.Before(now) {
		return StatusExpired
	}
	if DaysBetween(now, *expiry) <= 2 {
		return StatusExpiringSoon
	}
	return StatusGood
}

// DaysBetween returns the whole-day difference between the calendar day of b
// and the calendar day of a, in a's location. Partial days do not count.
func DaysBetween(a, b time.Time) int {
	from := startOfDay(a)
	to := startOfDay(b.In(a.Location()))
	// Rounding absorbs the one-hour skew of DST transition days.
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
