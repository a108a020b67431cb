// Package rfctime carries timestamps over the API as RFC 3339 strings.
package rfctime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Layout used to write timestamps. The offset is always numeric, never "Z".
const Layout string = "2006-01-02T15:04:05.999-07:00"

// RFC3339 is a time.Time which is (un)marshalled as RFC 3339 date-time.
//
// Parsing accepts both "Z" and numeric offsets.
type RFC3339 time.Time

func (t RFC3339) Time() time.Time {
	return time.Time(t)
}

func (t RFC3339) String() string {
	return time.Time(t).Format(Layout)
}

// Parse reads s as RFC 3339 date-time with optional fractional seconds.
func Parse(s string) (RFC3339, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return RFC3339{}, err
	}
	return RFC3339(t), nil
}

func (t RFC3339) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, t)), nil
}

// UnmarshalJSON leaves t untouched for null.
func (t *RFC3339) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
