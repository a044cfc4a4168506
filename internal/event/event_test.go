package event

import (
	"errors"
	"reflect"
	"testing"
)

func TestDynamicRoundTrip(t *testing.T) {
	events := []ScriptEvent{
		ActorEvent{Name: "花子"},
		Talk("こんにちは\\w5、\\_w[500]世界"),
		Talk("plain"),
		JumpEvent{Label: "end_2", ID: 7},
		CallEvent{Label: "a_1_b", ID: 0},
		ErrorEvent{Message: "label not found: x"},
		ExtensionEvent{Name: "bgm", Payload: map[string]any{"track": "rain", "loop": true, "volume": 0.5}},
		ExtensionEvent{Name: "flash"},
	}
	for _, ev := range events {
		t.Run(ev.String(), func(t *testing.T) {
			back, err := FromDynamic(ToDynamic(ev))
			if err != nil {
				t.Fatalf("FromDynamic: %v", err)
			}
			if !reflect.DeepEqual(back, ev) {
				t.Fatalf("round trip = %#v, want %#v", back, ev)
			}
		})
	}
}

func TestFromDynamicRejects(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"not a table", "talk"},
		{"missing type", map[string]any{"text": "x"}},
		{"unknown type", map[string]any{"type": "dance"}},
		{"wrong field type", map[string]any{"type": "talk", "text": 1.0}},
		{"fractional id", map[string]any{"type": "jump", "label": "a", "id": 1.5}},
		{"negative id", map[string]any{"type": "call", "label": "a", "id": -1.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromDynamic(tt.in)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestScanControls(t *testing.T) {
	got := ScanControls("あ\\w5い\\_w[500]う\\n")
	want := []InlineControl{
		{Code: "w", Arg: "5", Offset: 3},
		{Code: "_w", Arg: "500", Offset: 9},
		{Code: "n", Offset: 20},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ScanControls = %+v, want %+v", got, want)
	}
	if ScanControls("no codes") != nil {
		t.Fatalf("expected nil for plain text")
	}
}
