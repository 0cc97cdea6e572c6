package ingest

import (
	"fmt"
	"net/url"
)

// ParseForm reads a submitted entry form. Absent fields keep their defaults;
// a field that is present but not numeric is rejected.
func ParseForm(values url.Values) (Draft, error) {
	d := DefaultDraft()
	d.Name = ""
	for field, vs := range values {
		if len(vs) == 0 {
			continue
		}
		if _, err := d.Set(field, vs[len(vs)-1]); err != nil {
			return Draft{}, err
		}
	}
	if d.Name == "" {
		d.Name = DefaultName
	}
	return d, nil
}

func parseEncodedForm(body string) (Draft, error) {
	values, err := url.ParseQuery(body)
	if err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	return ParseForm(values)
}
