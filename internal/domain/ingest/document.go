package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ParseJSON reads a JSON object, either flat or with a nested "metrics" object.
func ParseJSON(r io.Reader) (Draft, error) {
	var doc map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	return fromDocument(doc)
}

// ParseYAML reads a YAML mapping shaped like the JSON document.
func ParseYAML(r io.Reader) (Draft, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	return fromDocument(doc)
}

func fromDocument(doc map[string]any) (Draft, error) {
	d := DefaultDraft()
	d.Name = ""
	found := 0

	apply := func(m map[string]any) error {
		for k, v := range m {
			if canonical(k) == "metrics" {
				continue
			}
			raw, err := scalar(v)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidField, k, err)
			}
			ok, err := d.Set(k, raw)
			if err != nil {
				return err
			}
			if ok && IsMetricField(k) {
				found++
			}
		}
		return nil
	}

	if err := apply(doc); err != nil {
		return Draft{}, err
	}
	for k, v := range doc {
		if canonical(k) != "metrics" {
			continue
		}
		nested, ok := v.(map[string]any)
		if !ok {
			return Draft{}, fmt.Errorf("%w: metrics must be an object", ErrInvalidField)
		}
		if err := apply(nested); err != nil {
			return Draft{}, err
		}
	}
	if found == 0 {
		return Draft{}, ErrNoMetrics
	}
	return d, nil
}

func scalar(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case nil:
		return "", fmt.Errorf("null value")
	default:
		return "", fmt.Errorf("unsupported value %T", v)
	}
}
