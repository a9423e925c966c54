package expiry

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var today = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func dateIn(days int) string {
	return today.AddDate(0, 0, days).Format(DateLayout)
}

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		daysLeft int
		bucket   Bucket
		label    string
	}{
		{-10, Expired, "Expired"},
		{-1, Expired, "Expired"},
		{0, Urgent, "Expires in 0d"},
		{7, Urgent, "Expires in 7d"},
		{8, Warning, "Expires in 8d"},
		{15, Warning, "Expires in 15d"},
		{16, Notice, "Expires in 16d"},
		{30, Notice, "Expires in 30d"},
		{31, Valid, "Valid"},
		{365, Valid, "Valid"},
	}

	for _, c := range cases {
		got := Classify(dateIn(c.daysLeft), today)
		assert.Equal(t, c.bucket, got.Bucket, "days left %d", c.daysLeft)
		assert.Equal(t, c.label, got.Label, "days left %d", c.daysLeft)
		assert.Equal(t, c.daysLeft, got.DaysLeft)
	}
}

func TestClassifyMissingAndInvalidDates(t *testing.T) {
	noDate := Classify("", today)
	assert.Equal(t, NoDate, noDate.Bucket)
	assert.Equal(t, math.MaxInt, noDate.DaysLeft)
	assert.False(t, noDate.IsExpired())
	assert.False(t, noDate.ExpiresWithin(10000))

	invalid := Classify("not-a-date", today)
	assert.Equal(t, InvalidDate, invalid.Bucket)
	assert.Equal(t, math.MaxInt, invalid.DaysLeft)
	assert.False(t, invalid.ExpiresWithin(10000))
}

// Buckets must move through Valid -> Notice -> Warning -> Urgent -> Expired as
// the expiry date decreases, with no tier skipped or reordered.
func TestClassifyMonotonicity(t *testing.T) {
	order := map[Bucket]int{Valid: 0, Notice: 1, Warning: 2, Urgent: 3, Expired: 4}

	prev := Valid
	for daysLeft := 40; daysLeft >= -5; daysLeft-- {
		got := Classify(dateIn(daysLeft), today)
		assert.GreaterOrEqual(t, order[got.Bucket], order[prev], "days left %d", daysLeft)
		assert.LessOrEqual(t, order[got.Bucket]-order[prev], 1, "days left %d skipped a tier", daysLeft)
		prev = got.Bucket
	}
	assert.Equal(t, Expired, prev)
}

func TestExpiresWithin(t *testing.T) {
	tenDays := Classify(dateIn(10), today)
	assert.True(t, tenDays.ExpiresWithin(15))
	assert.False(t, tenDays.ExpiresWithin(5))
	assert.False(t, tenDays.IsExpired())

	expired := Classify(dateIn(-1), today)
	assert.True(t, expired.IsExpired())
	assert.False(t, expired.ExpiresWithin(30))
}

// The reference day is truncated to midnight, so a document expiring today is
// still "Expires in 0d" regardless of the time of day the check runs.
func TestClassifyIgnoresTimeOfDay(t *testing.T) {
	lateToday := time.Date(2025, 6, 15, 23, 59, 59, 0, time.UTC)
	got := Classify("2025-06-15", lateToday)
	assert.Equal(t, Urgent, got.Bucket)
	assert.Equal(t, 0, got.DaysLeft)
}
