package jcal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// Dates travel through the system as fixed-width "YYYY/MM/DD" Jalali strings.
// The zero-padded form makes lexicographic order equal to chronological
// order; this package is the only place allowed to rely on that.

// Date is a Jalali calendar date.
type Date struct {
	Year  int
	Month int
	Day   int
}

// DateTime is a Jalali date with an hour component. Minutes are never part
// of deadline math, so they are deliberately absent.
type DateTime struct {
	Date Date
	Hour int
}

var datePattern = regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`)

// Parse validates and parses a "YYYY/MM/DD" date, normalizing hyphens to
// slashes first. Month and day sections must be exactly two digits.
// Returns ok=false on any mismatch; callers treat that as invalid input.
func Parse(s string) (Date, bool) {
	s = strings.ReplaceAll(s, "-", "/")
	if !datePattern.MatchString(s) {
		return Date{}, false
	}
	year, _ := strconv.Atoi(s[0:4])
	month, _ := strconv.Atoi(s[5:7])
	day, _ := strconv.Atoi(s[8:10])
	if month < 1 || month > 12 {
		return Date{}, false
	}
	if day < 1 || day > DaysInMonth(year, month) {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// MustParse parses a date known to be valid. Panics otherwise; reserved for
// fixtures and tests.
func MustParse(s string) Date {
	d, ok := Parse(s)
	if !ok {
		panic("jcal: invalid date " + s)
	}
	return d
}

func (d Date) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether d is the zero value.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Weekday returns the day of week with Shanbeh (Saturday) = 0 .. Jomeh
// (Friday) = 6, matching the deadline table's numbering.
func (d Date) Weekday() int {
	return int(d.ptime().Weekday())
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	g := d.ptime().Time().AddDate(0, 0, n)
	return fromPtime(ptime.New(g))
}

// Compare orders two dates; the result follows strings.Compare on the
// fixed-width form.
func Compare(a, b Date) int {
	return strings.Compare(a.String(), b.String())
}

func (d Date) ptime() ptime.Time {
	return ptime.Date(d.Year, ptime.Month(d.Month), d.Day, 12, 0, 0, 0, ptime.Iran())
}

func fromPtime(t ptime.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// AddDays shifts the date component, keeping the hour.
func (dt DateTime) AddDays(n int) DateTime {
	return DateTime{Date: dt.Date.AddDays(n), Hour: dt.Hour}
}

// AddHours adds n hours, rolling the date as needed.
func (dt DateTime) AddHours(n int) DateTime {
	h := dt.Hour + n
	days := h / 24
	h %= 24
	if h < 0 {
		h += 24
		days--
	}
	return DateTime{Date: dt.Date.AddDays(days), Hour: h}
}

// DaysInMonth returns the length of a Jalali month.
func DaysInMonth(year, month int) int {
	switch {
	case month <= 6:
		return 31
	case month <= 11:
		return 30
	default:
		if ptime.Date(year, ptime.Esfand, 1, 12, 0, 0, 0, ptime.Iran()).IsLeap() {
			return 30
		}
		return 29
	}
}

// MonthRange returns the first and last dates of a Jalali month.
func MonthRange(year, month int) (Date, Date) {
	first := Date{Year: year, Month: month, Day: 1}
	last := Date{Year: year, Month: month, Day: DaysInMonth(year, month)}
	return first, last
}

// WeekendWeekdays are the weekday indices treated as company weekend.
var WeekendWeekdays = []int{5, 6} // Panjshanbeh, Jomeh

// WeekendDays lists the weekend dates of a month, formatted.
func WeekendDays(year, month int) []string {
	var days []string
	for day := 1; day <= DaysInMonth(year, month); day++ {
		d := Date{Year: year, Month: month, Day: day}
		switch d.Weekday() {
		case 5, 6:
			days = append(days, d.String())
		}
	}
	return days
}

var weekdayNames = [7]string{
	"شنبه", "یکشنبه", "دوشنبه", "سه‌شنبه", "چهارشنبه", "پنجشنبه", "جمعه",
}

// WeekdayName returns the Persian name for a weekday index, used when a
// deadline-change notification names the affected day in words.
func WeekdayName(weekday int) string {
	if weekday < 0 || weekday > 6 {
		return ""
	}
	return weekdayNames[weekday]
}

// Clock supplies the current Jalali date, hour and weekday. Injected
// everywhere "now" matters so deadline math is deterministic under test.
type Clock interface {
	Now() DateTime
}

type tehranClock struct{}

func (tehranClock) Now() DateTime {
	t := ptime.New(time.Now().In(ptime.Iran()))
	return DateTime{
		Date: fromPtime(t),
		Hour: t.Hour(),
	}
}

// NewClock returns the production clock, localized to Tehran.
func NewClock() Clock {
	return tehranClock{}
}

// Fixed is a Clock pinned to one instant.
type Fixed struct {
	At DateTime
}

func (f Fixed) Now() DateTime { return f.At }
