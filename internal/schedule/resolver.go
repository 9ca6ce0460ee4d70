// Package schedule decides which weekday's timetable a request refers to,
// either from the clock or from a caller-supplied override string.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// TimeLayout is the wire format for times of day (24-hour, zero padded).
const TimeLayout = "15:04"

// ErrInvalidFormat matches every override parse failure.
var ErrInvalidFormat = errors.New("invalid format")

// ErrorKind tells a wrong-shaped override apart from a well-shaped one
// carrying an impossible value.
type ErrorKind int

const (
	WrongShape ErrorKind = iota
	InvalidDate
	InvalidTime
)

// ParseError describes why an override string was rejected.
type ParseError struct {
	Kind  ErrorKind
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case InvalidDate:
		return "Invalid date format. Expected YYYY-MM-DD"
	case InvalidTime:
		return "Invalid time in fake_time (HH:MM)"
	default:
		return "fake_time must be 'Friday HH:MM' or 'YYYY-MM-DD'"
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrInvalidFormat }

// OverrideKind tags which variant of Override is populated.
type OverrideKind int

const (
	// DateOverride carries an explicit calendar date.
	DateOverride OverrideKind = iota + 1
	// WeekdayTimeOverride carries a weekday token and a time of day.
	WeekdayTimeOverride
)

// Override is a parsed simulated "now".
type Override struct {
	Kind OverrideKind
	// Date is set for DateOverride.
	Date time.Time
	// Weekday is the capitalized first token for WeekdayTimeOverride; it is
	// not checked against real day names.
	Weekday string
	// TimeOfDay is the HH:MM part of a WeekdayTimeOverride. Accepted but not
	// used for filtering.
	TimeOfDay string
}

// WeekdayName returns the weekday the override stands for.
func (o Override) WeekdayName() string {
	if o.Kind == DateOverride {
		return o.Date.Weekday().String()
	}
	return o.Weekday
}

// ParseOverride turns a raw override into an Override. A literal '+' counts
// as a space so URL-encoded input works. Anything containing a hyphen that is
// exactly ten characters long is treated as a date; everything else must be
// "<weekday> HH:MM".
func ParseOverride(raw string) (Override, error) {
	s := strings.ReplaceAll(raw, "+", " ")

	if looksLikeDate(s) {
		d, err := time.Parse(DateLayout, s)
		if err != nil {
			return Override{}, &ParseError{Kind: InvalidDate, Input: raw, Err: err}
		}
		return Override{Kind: DateOverride, Date: d}, nil
	}

	parts := strings.Split(s, " ")
	if len(parts) != 2 {
		return Override{}, &ParseError{Kind: WrongShape, Input: raw}
	}
	if _, err := time.Parse(TimeLayout, parts[1]); err != nil {
		return Override{}, &ParseError{Kind: InvalidTime, Input: raw, Err: err}
	}
	return Override{
		Kind:      WeekdayTimeOverride,
		Weekday:   capitalize(parts[0]),
		TimeOfDay: parts[1],
	}, nil
}

func looksLikeDate(s string) bool {
	return strings.Contains(s, "-") && utf8.RuneCountInString(s) == len(DateLayout)
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock always reports t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Resolver resolves the effective weekday and today's date in one location.
type Resolver struct {
	clock Clock
	loc   *time.Location
}

// NewResolver builds a resolver. A nil clock means SystemClock and a nil
// location means time.Local.
func NewResolver(clock Clock, loc *time.Location) *Resolver {
	if clock == nil {
		clock = SystemClock
	}
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{clock: clock, loc: loc}
}

// Now is the clock's instant in the resolver's location.
func (r *Resolver) Now() time.Time {
	return r.clock.Now().In(r.loc)
}

// Today formats the current date as YYYY-MM-DD.
func (r *Resolver) Today() string {
	return r.Now().Format(DateLayout)
}

// Weekday returns the weekday to filter the timetable by. An empty override
// means the real current weekday.
func (r *Resolver) Weekday(override string) (string, error) {
	if override == "" {
		return r.Now().Weekday().String(), nil
	}
	o, err := ParseOverride(override)
	if err != nil {
		return "", err
	}
	return o.WeekdayName(), nil
}

// ValidateDate checks s is a real YYYY-MM-DD calendar date.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("%w: date %q, expected YYYY-MM-DD", ErrInvalidFormat, s)
	}
	return nil
}
