package calendar

import (
	"testing"
	"time"

	"pastahub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-03-02 is a Monday.
func monday(hour int) time.Time {
	return time.Date(2026, time.March, 2, hour, 0, 0, 0, time.UTC)
}

func TestEligibleDates_BeforeNoonNextDayIsReachable(t *testing.T) {
	addr := &model.DeliveryAddress{Tuesday: true}

	dates := EligibleDates(addr, monday(10))

	require.NotEmpty(t, dates)
	assert.Equal(t, time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC), dates[0],
		"an order placed Monday morning can still make Tuesday")
}

func TestEligibleDates_AfterNoonNeedsExtraLeadDay(t *testing.T) {
	addr := &model.DeliveryAddress{Tuesday: true}

	dates := EligibleDates(addr, monday(13))

	require.NotEmpty(t, dates)
	assert.Equal(t, time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC), dates[0],
		"past the cutoff, Tuesday moves a full week out")
}

func TestEligibleDates_HorizonBound(t *testing.T) {
	addr := &model.DeliveryAddress{Tuesday: true}
	now := monday(10)

	dates := EligibleDates(addr, now)

	limit := now.AddDate(0, 0, 1+Horizon)
	for _, d := range dates {
		assert.True(t, d.Before(limit), "date %s exceeds the horizon", d.Format("2006-01-02"))
	}
	// Roughly one serving weekday per week inside the window.
	assert.Len(t, dates, 9)
}

func TestEligibleDates_DefaultScheduleFallback(t *testing.T) {
	addr := &model.DeliveryAddress{}

	dates := EligibleDates(addr, monday(10))

	require.NotEmpty(t, dates)
	for _, d := range dates {
		weekday := d.Weekday()
		assert.True(t, weekday == time.Tuesday || weekday == time.Friday,
			"%s falls on an unserved weekday %s", d.Format("2006-01-02"), weekday)
	}
}

func TestEligibleDates_AllDatesOnServedWeekdays(t *testing.T) {
	addr := &model.DeliveryAddress{Monday: true, Thursday: true}

	dates := EligibleDates(addr, monday(10))

	require.NotEmpty(t, dates)
	for _, d := range dates {
		weekday := d.Weekday()
		assert.True(t, weekday == time.Monday || weekday == time.Thursday)
	}
}

func TestIsEligible(t *testing.T) {
	addr := &model.DeliveryAddress{Tuesday: true}
	now := monday(10)

	assert.True(t, IsEligible(addr, now, time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)))
	// Wednesday is not served.
	assert.False(t, IsEligible(addr, now, time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC)))
	// Tuesday today is inside the lead time.
	assert.False(t, IsEligible(addr, now, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)))
}
