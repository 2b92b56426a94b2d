package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/diwise/iot-asset-telemetry/pkg/types"
)

// ErrStructuralFault is the only failure the engine raises instead of
// reporting. It means the input is not a usable structured object.
var ErrStructuralFault = errors.New("input is not a structured telemetry object")

func DecodeTelemetryEvent(r io.Reader) (types.TelemetryEvent, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return types.TelemetryEvent{}, fmt.Errorf("%w: %s", ErrStructuralFault, err.Error())
	}

	return decodeObject(b)
}

func DecodeTelemetryEvents(r io.Reader) ([]types.TelemetryEvent, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStructuralFault, err.Error())
	}

	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		return nil, fmt.Errorf("%w: expected an array of events", ErrStructuralFault)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStructuralFault, err.Error())
	}

	events := make([]types.TelemetryEvent, 0, len(raw))
	for i, item := range raw {
		e, err := decodeObject(item)
		if err != nil {
			return nil, fmt.Errorf("event[%d]: %w", i, err)
		}
		events = append(events, e)
	}

	return events, nil
}

func decodeObject(b []byte) (types.TelemetryEvent, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return types.TelemetryEvent{}, fmt.Errorf("%w: expected a json object", ErrStructuralFault)
	}

	var event types.TelemetryEvent
	if err := json.Unmarshal(b, &event); err != nil {
		return types.TelemetryEvent{}, fmt.Errorf("%w: %s", ErrStructuralFault, err.Error())
	}

	return event, nil
}
