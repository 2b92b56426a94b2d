package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/samber/lo"
)

// FieldFault describes a json member that was present but held a value of
// the wrong type. The member is left at its zero value when decoding.
type FieldFault struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Got      string `json:"got"`
}

func (f FieldFault) Error() string {
	return fmt.Sprintf("%s must be %s, got: %s", f.Field, f.Expected, f.Got)
}

// decodeMembers decodes a json object into target one member at a time, so
// that a wrongly typed member is reported instead of failing the whole object.
// Anything that is not a json object is returned as an error.
func decodeMembers[T any](b []byte, target *T) ([]FieldFault, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(b, &members); err != nil {
		return nil, err
	}

	var faults []FieldFault

	names := lo.Keys(members)
	sort.Strings(names)

	for _, name := range names {
		single, err := json.Marshal(map[string]json.RawMessage{name: members[name]})
		if err != nil {
			return nil, err
		}

		var scratch T
		err = json.Unmarshal(single, &scratch)

		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			faults = append(faults, FieldFault{
				Field:    name,
				Expected: expectedKind(typeErr.Type),
				Got:      typeErr.Value,
			})
			delete(members, name)
		} else if err != nil {
			return nil, err
		}
	}

	cleaned, err := json.Marshal(members)
	if err != nil {
		return nil, err
	}

	return faults, json.Unmarshal(cleaned, target)
}

func expectedKind(t reflect.Type) string {
	if t == nil {
		return "a valid value"
	}

	switch t.Kind() {
	case reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "a finite number"
	case reflect.Bool:
		return "a boolean"
	case reflect.String:
		return "a string"
	case reflect.Map, reflect.Struct:
		return "an object"
	case reflect.Slice, reflect.Array:
		return "an array"
	}

	return t.String()
}

func (e *TelemetryEvent) UnmarshalJSON(b []byte) error {
	type members TelemetryEvent

	var m members
	faults, err := decodeMembers(b, &m)
	if err != nil {
		return err
	}

	*e = TelemetryEvent(m)
	e.Malformed = faults

	return nil
}

func (l *MLTrainingLabels) UnmarshalJSON(b []byte) error {
	type members MLTrainingLabels

	var m members
	faults, err := decodeMembers(b, &m)
	if err != nil {
		return err
	}

	*l = MLTrainingLabels(m)
	l.Malformed = faults

	return nil
}

func (p *TelemetryIngestPayload) UnmarshalJSON(b []byte) error {
	type members TelemetryIngestPayload

	var m members
	faults, err := decodeMembers(b, &m)
	if err != nil {
		return err
	}

	*p = TelemetryIngestPayload(m)
	p.Malformed = faults

	return nil
}
