package leave

import (
	"encoding/json"
	"strings"
	"time"
)

// =============================================================================
// DATE - A calendar day; time of day is irrelevant
// =============================================================================

// DateLayout is the wire and storage format of a Date.
const DateLayout = "2006-01-02"

// Date is a calendar day anchored at local midnight.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.Local)}
}

// DateOf truncates t to its local calendar day.
func DateOf(t time.Time) Date {
	t = t.In(time.Local)
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the local calendar day of now.
func Today(now time.Time) Date { return DateOf(now) }

// ParseDate accepts "2006-01-02" or an RFC3339 timestamp. Timestamps are
// converted to local time before the day is taken.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(DateLayout, s, time.Local); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.key() < other.key() }
func (d Date) After(other Date) bool         { return d.key() > other.key() }
func (d Date) Equal(other Date) bool         { return d.key() == other.key() }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// key orders dates without depending on DST offsets.
func (d Date) key() int {
	return d.Time.Year()*10000 + int(d.Time.Month())*100 + d.Time.Day()
}

func (d Date) AddDays(n int) Date { return NewDate(d.Time.Year(), d.Time.Month(), d.Time.Day()+n) }

func (d Date) String() string {
	if d.Time.IsZero() {
		return ""
	}
	return d.Time.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// PERIOD - Closed interval of days [From, To]
// =============================================================================

type Period struct {
	From Date
	To   Date
}

// Valid reports whether To is not before From.
func (p Period) Valid() bool { return p.To.AfterOrEqual(p.From) }

// Overlaps is closed-interval intersection: a.From <= b.To && a.To >= b.From.
func (p Period) Overlaps(other Period) bool {
	return p.From.BeforeOrEqual(other.To) && p.To.AfterOrEqual(other.From)
}

// Contains returns true if d is within [From, To].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.From) && d.BeforeOrEqual(p.To)
}

// Days counts calendar days in the period, both ends included.
func (p Period) Days() int {
	if !p.Valid() {
		return 0
	}
	from := time.Date(p.From.Time.Year(), p.From.Time.Month(), p.From.Time.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(p.To.Time.Year(), p.To.Time.Month(), p.To.Time.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours()/24) + 1
}

func (p Period) String() string {
	return "[" + p.From.String() + ", " + p.To.String() + "]"
}
