package expr

import (
	"math"
	"time"
)

// now is the clock behind Date() and Date.now().
var now = time.Now

// Class is a constructor global such as Date: callable, constructable with
// new, and carrying static members.
type Class struct {
	name      string
	call      Func
	construct func(args []any) (any, error)
	statics   *Object
}

func (c *Class) String() string { return "function " + c.name + "() { [native code] }" }

// Date is the value created by new Date(...). An invalid date has no time.
type Date struct {
	t     time.Time
	valid bool
}

// NewDate wraps t as an expression Date.
func NewDate(t time.Time) *Date { return &Date{t: t, valid: true} }

// Time returns the instant and whether the date is valid.
func (d *Date) Time() (time.Time, bool) { return d.t, d.valid }

func (d *Date) ms() float64 {
	if !d.valid {
		return math.NaN()
	}
	return float64(d.t.UnixMilli())
}

func (d *Date) String() string {
	if !d.valid {
		return "Invalid Date"
	}
	local := d.t.In(time.Local)
	zone, _ := local.Zone()
	return local.Format("Mon Jan 02 2006 15:04:05 GMT-0700") + " (" + zone + ")"
}

func (d *Date) isoString() (string, error) {
	if !d.valid {
		return "", runtimeErrorf("Invalid time value")
	}
	return d.t.UTC().Format("2006-01-02T15:04:05.000Z"), nil
}

var dateClass = &Class{
	name: "Date",
	call: func(_ any, _ []any) (any, error) {
		return NewDate(now()).String(), nil
	},
	construct: constructDate,
	statics: objectOf(
		"now", Func(func(_ any, _ []any) (any, error) {
			return float64(now().UnixMilli()), nil
		}),
	),
}

func constructDate(args []any) (any, error) {
	switch len(args) {
	case 0:
		return NewDate(now()), nil
	case 1:
		switch v := args[0].(type) {
		case *Date:
			return &Date{t: v.t, valid: v.valid}, nil
		case string:
			return parseDate(v), nil
		}
		return fromMillis(ToNumber(args[0])), nil
	}

	// new Date(year, monthIndex, day, hours, minutes, seconds, ms) in local time.
	fields := [7]float64{0, 0, 1, 0, 0, 0, 0}
	for i := 0; i < len(args) && i < len(fields); i++ {
		f := ToNumber(args[i])
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &Date{}, nil
		}
		fields[i] = math.Trunc(f)
	}
	year := int(fields[0])
	if year >= 0 && year <= 99 {
		year += 1900
	}
	t := time.Date(year, time.Month(int(fields[1])+1), int(fields[2]),
		int(fields[3]), int(fields[4]), int(fields[5]), int(fields[6])*int(time.Millisecond), time.Local)
	return NewDate(t), nil
}

func fromMillis(ms float64) *Date {
	if math.IsNaN(ms) || math.Abs(ms) > 8.64e15 {
		return &Date{}
	}
	return NewDate(time.UnixMilli(int64(ms)))
}

// Date-only forms are UTC, date-time forms without a zone are local time.
var dateLayouts = []struct {
	layout string
	loc    *time.Location
}{
	{time.RFC3339Nano, time.UTC},
	{"2006-01-02", time.UTC},
	{"2006-01", time.UTC},
	{"2006", time.UTC},
	{"2006-01-02T15:04:05.999999999", time.Local},
	{"2006-01-02T15:04", time.Local},
	{time.RFC1123, time.UTC},
	{time.RFC1123Z, time.UTC},
}

func parseDate(s string) *Date {
	for _, l := range dateLayouts {
		if t, err := time.ParseInLocation(l.layout, s, l.loc); err == nil {
			return NewDate(t)
		}
	}
	return &Date{}
}

func dateMethod(d *Date, name string) any {
	local := d.t.In(time.Local)
	utc := d.t.UTC()
	field := func(f func() int) Func {
		return func(_ any, _ []any) (any, error) {
			if !d.valid {
				return math.NaN(), nil
			}
			return float64(f()), nil
		}
	}
	switch name {
	case "getTime", "valueOf":
		return Func(func(_ any, _ []any) (any, error) { return d.ms(), nil })
	case "toISOString", "toJSON":
		return Func(func(_ any, _ []any) (any, error) { return d.isoString() })
	case "toString":
		return Func(func(_ any, _ []any) (any, error) { return d.String(), nil })
	case "getFullYear":
		return field(local.Year)
	case "getMonth":
		return field(func() int { return int(local.Month()) - 1 })
	case "getDate":
		return field(local.Day)
	case "getDay":
		return field(func() int { return int(local.Weekday()) })
	case "getHours":
		return field(local.Hour)
	case "getMinutes":
		return field(local.Minute)
	case "getSeconds":
		return field(local.Second)
	case "getMilliseconds":
		return field(func() int { return local.Nanosecond() / int(time.Millisecond) })
	case "getUTCFullYear":
		return field(utc.Year)
	case "getUTCMonth":
		return field(func() int { return int(utc.Month()) - 1 })
	case "getUTCDate":
		return field(utc.Day)
	case "getUTCDay":
		return field(func() int { return int(utc.Weekday()) })
	case "getUTCHours":
		return field(utc.Hour)
	case "getTimezoneOffset":
		return field(func() int {
			_, offset := local.Zone()
			return -offset / 60
		})
	}
	return Undefined
}
