// Package period computes the date ranges sent to the billing service.
//
// Cost Explorer takes calendar dates formatted as YYYY-MM-DD and treats the
// end date as exclusive, so a whole month is expressed as the first day of
// that month up to the first day of the following month.
package period

import "time"

// DateLayout is the calendar date format used by Cost Explorer
const DateLayout = "2006-01-02"

// Range is a calendar date interval; Start is inclusive, End is exclusive
type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CurrentMonth returns the range covering the calendar month containing now.
// The month arithmetic is delegated to time.Date normalisation, so month
// lengths and the December to January rollover need no special casing.
func CurrentMonth(now time.Time) Range {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	next := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())

	return Range{
		Start: first.Format(DateLayout),
		End:   next.Format(DateLayout),
	}
}
