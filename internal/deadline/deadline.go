// Package deadline implements the submission-window rules: per-weekday,
// per-meal-type deadlines and the arithmetic deciding whether an action on a
// target date is still allowed at a given moment.
package deadline

import (
	"fmt"

	"github.com/daway0/pors/internal/enum"
	"github.com/daway0/pors/internal/jcal"
)

// Deadline is the submission rule for one (weekday, meal type) pair:
// an order for a date must be placed at least Days days in advance, and
// before Hour o'clock on the last eligible day.
type Deadline struct {
	Days int
	Hour int
}

func (d Deadline) validate() error {
	if d.Days < 0 {
		return fmt.Errorf("deadline days offset %d is negative", d.Days)
	}
	if d.Hour < 0 || d.Hour > 24 {
		return fmt.Errorf("deadline hour threshold %d outside [0, 24]", d.Hour)
	}
	return nil
}

// IsWithinWindow reports whether an action targeting target is still
// permitted at now under d.
//
// The eligibility boundary is now shifted forward by the day offset; once
// the threshold hour on that day has passed, the boundary rolls one more
// calendar day. The action is permitted iff the target date is on or after
// the boundary day.
//
// A malformed deadline (hour outside [0,24]) is a configuration error, not
// a user error, and is returned as such.
func IsWithinWindow(now jcal.DateTime, target jcal.Date, d Deadline) (bool, error) {
	if err := d.validate(); err != nil {
		return false, err
	}
	eligible := now.AddDays(d.Days)
	if eligible.Hour >= d.Hour {
		eligible = eligible.AddDays(1)
	}
	return jcal.Compare(target, eligible.Date) >= 0, nil
}

// Table holds the full 14-row deadline set, indexed by weekday.
type Table struct {
	Breakfast [7]Deadline
	Lunch     [7]Deadline
}

// Get returns the deadline for a weekday and meal type.
func (t Table) Get(weekday int, mealType string) (Deadline, error) {
	if weekday < 0 || weekday > 6 {
		return Deadline{}, fmt.Errorf("weekday %d outside [0, 6]", weekday)
	}
	switch mealType {
	case enum.MealTypeBreakfast:
		return t.Breakfast[weekday], nil
	case enum.MealTypeLunch:
		return t.Lunch[weekday], nil
	}
	return Deadline{}, fmt.Errorf("unknown meal type %q", mealType)
}

// FirstOrderableDate walks forward from now, one day at a time, and returns
// the earliest date for which both meal types would accept an order placed
// right now.
//
// A meal type is cleared for the day under inspection when either its
// offset equals the days already passed and the threshold hour has not yet
// struck, or its offset is larger than the days passed (the boundary is
// still ahead). The walk advances while either meal type is blocked; the
// same rolling rule as IsWithinWindow, asked in the other direction.
func (t Table) FirstOrderableDate(now jcal.DateTime) (jcal.Date, error) {
	for _, set := range [][7]Deadline{t.Breakfast, t.Lunch} {
		for _, d := range set {
			if err := d.validate(); err != nil {
				return jcal.Date{}, err
			}
		}
	}

	weekday := now.Date.Weekday()
	for passedDays := 0; passedDays <= maxWalk; passedDays++ {
		brf := t.Breakfast[weekday]
		lnc := t.Lunch[weekday]
		if cleared(brf, passedDays, now.Hour) && cleared(lnc, passedDays, now.Hour) {
			return now.Date.AddDays(passedDays), nil
		}
		weekday = (weekday + 1) % 7
	}
	return jcal.Date{}, fmt.Errorf("no orderable date within %d days", maxWalk)
}

// maxWalk bounds the forward walk; a sane deadline table clears within its
// largest day offset plus one week.
const maxWalk = 400

// cleared reports whether an order placed right now, passedDays before the
// day under inspection, meets d: either today is exactly the last eligible
// day and the threshold hour has not struck yet, or the last eligible day
// is already behind us relative to the target.
func cleared(d Deadline, passedDays, hour int) bool {
	if d.Days == passedDays {
		return hour < d.Hour
	}
	return d.Days < passedDays
}

// Uniform builds a table with the same deadline for every weekday and both
// meal types. Handy for tests and initial seeding.
func Uniform(d Deadline) Table {
	var t Table
	for i := range t.Breakfast {
		t.Breakfast[i] = d
		t.Lunch[i] = d
	}
	return t
}
