package checks

import (
	"encoding/json"
	"strings"
)

// Timeout and grace bounds, in seconds.
const (
	MinTimeout = 60
	MaxTimeout = 604800 // one week

	DefaultTimeout = 86400
	DefaultGrace   = 3600
)

// ValidationError describes bad input shape or range. The message is safe
// to return verbatim in an API error body.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Params holds validated check creation or update fields.
type Params struct {
	Name    string
	Tags    string
	Timeout int
	Grace   int
}

// ParseParams validates the loosely typed fields of a decoded JSON body.
// Numbers must arrive as json.Number (decode with UseNumber), so a string
// "3600" is rejected the same way a boolean name is.
func ParseParams(fields map[string]any) (*Params, error) {
	p := &Params{
		Timeout: DefaultTimeout,
		Grace:   DefaultGrace,
	}

	var err error
	if p.Name, err = stringField(fields, "name"); err != nil {
		return nil, err
	}
	if p.Tags, err = stringField(fields, "tags"); err != nil {
		return nil, err
	}
	if p.Timeout, err = durationField(fields, "timeout", p.Timeout); err != nil {
		return nil, err
	}
	if p.Grace, err = durationField(fields, "grace", p.Grace); err != nil {
		return nil, err
	}
	return p, nil
}

func stringField(fields map[string]any, key string) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{Msg: key + " is not a string"}
	}
	return strings.TrimSpace(s), nil
}

func durationField(fields map[string]any, key string, fallback int) (int, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return fallback, nil
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, &ValidationError{Msg: key + " is not a number"}
	}
	n, err := num.Int64()
	if err != nil {
		f, ferr := num.Float64()
		if ferr != nil {
			return 0, &ValidationError{Msg: key + " is not a number"}
		}
		n = int64(f)
	}
	if n < MinTimeout {
		return 0, &ValidationError{Msg: key + " is too small"}
	}
	if n > MaxTimeout {
		return 0, &ValidationError{Msg: key + " is too large"}
	}
	return int(n), nil
}
