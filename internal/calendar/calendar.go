// Package calendar computes the eligible delivery dates for an address.
// Results span a fixed forward horizon, are recomputed on every call and
// are never stored.
package calendar

import (
	"time"

	"pastahub/internal/model"
)

const (
	// Horizon is how many days ahead a delivery may be requested.
	Horizon = 60
	// Orders placed before noon can be delivered the next day; later
	// orders need one extra day of lead time.
	cutoffHour = 12
)

// DefaultSchedule is the system-wide weekday schedule inherited by
// addresses that have no weekday flag of their own.
var DefaultSchedule = []time.Weekday{time.Tuesday, time.Friday}

// EligibleDates returns the set of valid delivery dates for the address,
// starting from now. The result is ordered ascending.
func EligibleDates(addr *model.DeliveryAddress, now time.Time) []time.Time {
	days := addr.Weekdays()
	if len(days) == 0 {
		days = DefaultSchedule
	}

	served := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		served[d] = true
	}

	lead := 2
	if now.Hour() < cutoffHour {
		lead = 1
	}

	start := now.AddDate(0, 0, lead)
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, now.Location())

	var dates []time.Time
	for d := 0; d < Horizon; d++ {
		candidate := start.AddDate(0, 0, d)
		if served[candidate.Weekday()] {
			dates = append(dates, candidate)
		}
	}
	return dates
}

// IsEligible reports whether the given date is a valid delivery date for
// the address as of now.
func IsEligible(addr *model.DeliveryAddress, now, date time.Time) bool {
	for _, d := range EligibleDates(addr, now) {
		if sameDay(d, date) {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
