// Package expiry classifies document expiry dates into status buckets. The same
// classification is used by the per-document read paths and by the statistics
// endpoints so that both report identical cutoffs.
package expiry

import (
	"fmt"
	"math"
	"time"
)

const DateLayout = "2006-01-02"

type Bucket string

const (
	NoDate      Bucket = "No Date"
	InvalidDate Bucket = "Invalid Date"
	Expired     Bucket = "Expired"
	Urgent      Bucket = "Urgent"  // expires within 7 days
	Warning     Bucket = "Warning" // expires within 8-15 days
	Notice      Bucket = "Notice"  // expires within 16-30 days
	Valid       Bucket = "Valid"   // more than 30 days left
)

type Classification struct {
	Bucket Bucket `json:"bucket"`
	Label  string `json:"label"`

	// Whole days until expiry. Documents without a parseable date report
	// math.MaxInt so they sort after everything else.
	DaysLeft int `json:"days_left"`
}

// Classify maps an expiry date against the given reference day. The reference
// day is captured once per aggregation call, not per record, so a whole result
// set is classified against a consistent cutoff.
func Classify(expiryDate string, today time.Time) Classification {
	if expiryDate == "" {
		return Classification{Bucket: NoDate, Label: string(NoDate), DaysLeft: math.MaxInt}
	}

	date, err := time.ParseInLocation(DateLayout, expiryDate, time.UTC)
	if err != nil {
		return Classification{Bucket: InvalidDate, Label: string(InvalidDate), DaysLeft: math.MaxInt}
	}

	daysLeft := int(date.Sub(truncateToDay(today)).Hours() / 24)

	switch {
	case daysLeft < 0:
		return Classification{Bucket: Expired, Label: string(Expired), DaysLeft: daysLeft}
	case daysLeft <= 7:
		return Classification{Bucket: Urgent, Label: countdownLabel(daysLeft), DaysLeft: daysLeft}
	case daysLeft <= 15:
		return Classification{Bucket: Warning, Label: countdownLabel(daysLeft), DaysLeft: daysLeft}
	case daysLeft <= 30:
		return Classification{Bucket: Notice, Label: countdownLabel(daysLeft), DaysLeft: daysLeft}
	default:
		return Classification{Bucket: Valid, Label: string(Valid), DaysLeft: daysLeft}
	}
}

// ExpiresWithin reports whether the document expires in at most the given
// number of days without already being expired.
func (c Classification) ExpiresWithin(days int) bool {
	return c.Bucket != NoDate && c.Bucket != InvalidDate && c.DaysLeft >= 0 && c.DaysLeft <= days
}

func (c Classification) IsExpired() bool {
	return c.Bucket == Expired
}

func countdownLabel(daysLeft int) string {
	return fmt.Sprintf("Expires in %dd", daysLeft)
}

func truncateToDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
