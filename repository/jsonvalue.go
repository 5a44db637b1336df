package repository

import (
	"database/sql/driver"
	"fmt"

	json "github.com/goccy/go-json"
)

// jsonValue stores an arbitrary JSON value in a text column. A nil value is
// written as NULL and NULL reads back as nil.
type jsonValue struct {
	V any
}

func (j jsonValue) Value() (driver.Value, error) {
	if j.V == nil {
		return nil, nil
	}
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *jsonValue) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		j.V = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("jsonValue: cannot scan %T", src)
	}
	j.V = nil
	return json.Unmarshal(raw, &j.V)
}
