package event

import (
	"fmt"
	"strconv"
)

// Kind is the value of the "type" field in the dynamic form of an event.
type Kind string

const (
	KindActor     Kind = "actor"
	KindTalk      Kind = "talk"
	KindJump      Kind = "jump"
	KindCall      Kind = "call"
	KindError     Kind = "error"
	KindExtension Kind = "extension"
)

// ScriptEvent is what a running script hands back to the engine.
// The set of implementations is closed.
type ScriptEvent interface {
	Kind() Kind
	String() string
	scriptEvent()
}

// ActorEvent announces the speaker of the following talk events.
type ActorEvent struct {
	Name string
}

// TalkEvent carries one line of dialogue, control codes included.
type TalkEvent struct {
	Text     string
	Controls []InlineControl
}

// JumpEvent marks a transfer that does not return.
type JumpEvent struct {
	Label string
	ID    uint32
}

// CallEvent marks a transfer that returns to the caller.
type CallEvent struct {
	Label string
	ID    uint32
}

// ErrorEvent is terminal: the script stops after it.
type ErrorEvent struct {
	Message string
}

// ExtensionEvent is emitted by host blocks for engine-defined features.
type ExtensionEvent struct {
	Name    string
	Payload any
}

func (ActorEvent) Kind() Kind     { return KindActor }
func (TalkEvent) Kind() Kind      { return KindTalk }
func (JumpEvent) Kind() Kind      { return KindJump }
func (CallEvent) Kind() Kind      { return KindCall }
func (ErrorEvent) Kind() Kind     { return KindError }
func (ExtensionEvent) Kind() Kind { return KindExtension }

func (ActorEvent) scriptEvent()     {}
func (TalkEvent) scriptEvent()      {}
func (JumpEvent) scriptEvent()      {}
func (CallEvent) scriptEvent()      {}
func (ErrorEvent) scriptEvent()     {}
func (ExtensionEvent) scriptEvent() {}

func (e ActorEvent) String() string { return "Actor(" + strconv.Quote(e.Name) + ")" }
func (e TalkEvent) String() string  { return "Talk(" + strconv.Quote(e.Text) + ")" }
func (e JumpEvent) String() string  { return fmt.Sprintf("Jump(%s#%d)", e.Label, e.ID) }
func (e CallEvent) String() string  { return fmt.Sprintf("Call(%s#%d)", e.Label, e.ID) }
func (e ErrorEvent) String() string { return "Error(" + strconv.Quote(e.Message) + ")" }
func (e ExtensionEvent) String() string {
	return fmt.Sprintf("Extension(%s, %v)", e.Name, e.Payload)
}

// Talk builds a TalkEvent with its control codes scanned from text.
func Talk(text string) TalkEvent {
	return TalkEvent{Text: text, Controls: ScanControls(text)}
}
