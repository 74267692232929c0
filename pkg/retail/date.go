package retail

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Layouts accepted when decoding a Date, most specific last
var dateLayouts = []string{dateLayout, time.RFC3339, "2006-01-02T15:04:05"}

// Date is a calendar date encoded as YYYY-MM-DD
type Date struct {
	time.Time
}

// NewDate returns the calendar date in UTC
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// UnmarshalJSON implements json.Unmarshaler for Date
func (d *Date) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	if str == "" || str == "null" {
		d.Time = time.Time{}
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("unable to parse date: %s", str)
}

// MarshalJSON implements json.Marshaler for Date
func (d Date) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Time.Format(dateLayout) + `"`), nil
}

func (d Date) String() string {
	if d.Time.IsZero() {
		return ""
	}
	return d.Time.Format(dateLayout)
}
