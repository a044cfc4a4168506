package transpiler

import (
	"io"
	"strings"

	"github.com/funvibe/talescript/internal/symbols"
)

type ChunkKind int

const (
	ChunkFile ChunkKind = iota
	ChunkLabel
	ChunkDispatch
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkFile:
		return "file"
	case ChunkLabel:
		return "label"
	case ChunkDispatch:
		return "dispatch"
	}
	return "unknown"
}

// Chunk is one unit of generated Lua, loaded into the VM on its own.
type Chunk struct {
	Kind ChunkKind
	// Name is the chunk name the VM reports in error positions.
	Name string
	// Path is the label path for label chunks and the source file otherwise.
	Path   string
	Source string
}

// Output is the generated program in load order: file blocks, label
// modules, then the dispatch chunk which binds the modules together.
type Output struct {
	Registry *symbols.Registry
	Chunks   []Chunk
}

// WriteTo streams all chunks, each introduced by a separator comment.
func (o *Output) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, c := range o.Chunks {
		n, err := io.WriteString(w, "-- chunk "+c.Kind.String()+" "+c.Path+"\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
		n, err = io.WriteString(w, c.Source)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (o *Output) String() string {
	var b strings.Builder
	_, _ = o.WriteTo(&b)
	return b.String()
}

// LabelChunk returns the module generated for a label ID.
func (o *Output) LabelChunk(id uint32) (Chunk, bool) {
	e, ok := o.Registry.Entry(id)
	if !ok {
		return Chunk{}, false
	}
	for _, c := range o.Chunks {
		if c.Kind == ChunkLabel && c.Path == e.FnPath {
			return c, true
		}
	}
	return Chunk{}, false
}
