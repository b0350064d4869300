package mapping

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/indexsync/internal/domain/schema"
)

// dateLayouts are the textual date forms accepted for date fields, in the
// order they are tried. sqlite stores dates as text in either form.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// coerce converts v to the canonical Go representation of ft: int64 for
// integer and long, float64 for float, bool for boolean, UTC time.Time for
// date and string for keyword and text. nil stays nil.
func coerce(ft schema.Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch ft {
	case schema.Integer, schema.Long:
		return toInt64(v)
	case schema.Float:
		return toFloat64(v)
	case schema.Boolean:
		return toBool(v)
	case schema.Date:
		return toTime(v)
	case schema.Keyword, schema.Text:
		return toString(v), nil
	}
	return v, nil
}

func toInt64(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return rv.Int(), nil
	case rv.CanUint():
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("value %d overflows int64", u)
		}
		return int64(u), nil
	case rv.CanFloat():
		f := rv.Float()
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("value %v is not an integer", f)
		}
		return int64(f), nil
	}
	switch x := v.(type) {
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
	}
	return nil, fmt.Errorf("cannot convert %T to integer", v)
}

func toFloat64(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanFloat():
		return rv.Float(), nil
	case rv.CanInt():
		return float64(rv.Int()), nil
	case rv.CanUint():
		return float64(rv.Uint()), nil
	}
	switch x := v.(type) {
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
	}
	return nil, fmt.Errorf("cannot convert %T to float", v)
}

func toBool(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.Kind() == reflect.Bool:
		return rv.Bool(), nil
	case rv.CanInt():
		return rv.Int() != 0, nil
	case rv.CanUint():
		return rv.Uint() != 0, nil
	}
	switch x := v.(type) {
	case string:
		return strconv.ParseBool(strings.TrimSpace(x))
	case []byte:
		return strconv.ParseBool(strings.TrimSpace(string(x)))
	}
	return nil, fmt.Errorf("cannot convert %T to boolean", v)
}

func toTime(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		return x.UTC(), nil
	case int64:
		return time.Unix(x, 0).UTC(), nil
	case []byte:
		return ParseDate(string(x))
	case string:
		return ParseDate(x)
	}
	return nil, fmt.Errorf("cannot convert %T to date", v)
}

// ParseDate parses a textual date in any of the accepted layouts and
// returns it in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse date %q", s)
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
