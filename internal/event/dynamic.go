package event

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformed is returned by FromDynamic for values that are not events.
var ErrMalformed = errors.New("malformed script event")

// ToDynamic converts an event into the host VM value form: a table of
// strings, float64 numbers, booleans and nested tables.
func ToDynamic(ev ScriptEvent) map[string]any {
	m := map[string]any{"type": string(ev.Kind())}
	switch e := ev.(type) {
	case ActorEvent:
		m["name"] = e.Name
	case TalkEvent:
		m["text"] = e.Text
	case JumpEvent:
		m["label"] = e.Label
		m["id"] = float64(e.ID)
	case CallEvent:
		m["label"] = e.Label
		m["id"] = float64(e.ID)
	case ErrorEvent:
		m["message"] = e.Message
	case ExtensionEvent:
		m["name"] = e.Name
		if e.Payload != nil {
			m["payload"] = e.Payload
		}
	}
	return m
}

// FromDynamic converts a value yielded by the host VM back into an event.
func FromDynamic(v any) (ScriptEvent, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected table, got %T", ErrMalformed, v)
	}
	kind, err := field[string](m, "type")
	if err != nil {
		return nil, err
	}

	switch Kind(kind) {
	case KindActor:
		name, err := field[string](m, "name")
		if err != nil {
			return nil, err
		}
		return ActorEvent{Name: name}, nil
	case KindTalk:
		text, err := field[string](m, "text")
		if err != nil {
			return nil, err
		}
		return Talk(text), nil
	case KindJump, KindCall:
		label, err := field[string](m, "label")
		if err != nil {
			return nil, err
		}
		id, err := labelID(m)
		if err != nil {
			return nil, err
		}
		if Kind(kind) == KindJump {
			return JumpEvent{Label: label, ID: id}, nil
		}
		return CallEvent{Label: label, ID: id}, nil
	case KindError:
		msg, err := field[string](m, "message")
		if err != nil {
			return nil, err
		}
		return ErrorEvent{Message: msg}, nil
	case KindExtension:
		name, err := field[string](m, "name")
		if err != nil {
			return nil, err
		}
		return ExtensionEvent{Name: name, Payload: m["payload"]}, nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, kind)
}

func field[T any](m map[string]any, key string) (T, error) {
	var zero T
	raw, ok := m[key]
	if !ok {
		return zero, fmt.Errorf("%w: missing field %q", ErrMalformed, key)
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: field %q has type %T", ErrMalformed, key, raw)
	}
	return v, nil
}

func labelID(m map[string]any) (uint32, error) {
	f, err := field[float64](m, "id")
	if err != nil {
		return 0, err
	}
	if f < 0 || f > math.MaxUint32 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: invalid label id %v", ErrMalformed, f)
	}
	return uint32(f), nil
}
