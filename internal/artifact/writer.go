package artifact

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/talescript/internal/config"
	"github.com/funvibe/talescript/internal/transpiler"
)

const (
	chunkDirName    = "lua"
	programFileName = "program.lua"
	orderFileName   = "load_order.txt"
)

// ChunkFile maps a chunk to its file under the lua directory: label
// modules by path, file blocks under files/, dispatch at the top. Label
// paths and file path segments are escaped so every result is a plain
// name inside the lua directory.
func ChunkFile(c transpiler.Chunk) string {
	switch c.Kind {
	case transpiler.ChunkLabel:
		return escapeName(c.Path) + config.LuaChunkExt
	case transpiler.ChunkFile:
		parts := []string{"files"}
		for seg := range strings.SplitSeq(filepath.ToSlash(config.TrimSourceExt(c.Path)), "/") {
			if seg != "" {
				parts = append(parts, escapeName(seg))
			}
		}
		return filepath.Join(parts...) + config.LuaChunkExt
	default:
		return transpiler.DispatchChunkName + config.LuaChunkExt
	}
}

// escapeName keeps letters, digits and "_-~" and writes every other byte
// as %XX.
func escapeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '~' {
			b.WriteRune(r)
			continue
		}
		var buf [utf8.UTFMax]byte
		for _, c := range buf[:utf8.EncodeRune(buf[:], r)] {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// WriteChunks replaces the lua directory of outDir with the chunks of out,
// writes a load order list and the concatenated program. It returns the
// written chunk files relative to outDir, in load order.
func WriteChunks(outDir string, out *transpiler.Output) ([]string, error) {
	chunkDir := filepath.Join(outDir, chunkDirName)
	if err := os.RemoveAll(chunkDir); err != nil {
		return nil, fmt.Errorf("clear %s: %w", chunkDir, err)
	}

	var order bytes.Buffer
	files := make([]string, 0, len(out.Chunks))
	for _, c := range out.Chunks {
		name := ChunkFile(c)
		if !filepath.IsLocal(name) {
			return nil, fmt.Errorf("chunk %s: file name %q leaves the output directory", c.Name, name)
		}
		rel := filepath.Join(chunkDirName, name)
		path := filepath.Join(outDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(c.Source), 0o644); err != nil {
			return nil, fmt.Errorf("write chunk %s: %w", rel, err)
		}
		files = append(files, filepath.ToSlash(rel))
		order.WriteString(filepath.ToSlash(rel))
		order.WriteByte('\n')
	}

	if err := os.WriteFile(filepath.Join(chunkDir, orderFileName), order.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write load order: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, programFileName), []byte(out.String()), 0o644); err != nil {
		return nil, fmt.Errorf("write program: %w", err)
	}
	return files, nil
}

// ReadLoadOrder returns the chunk files recorded by the last WriteChunks.
func ReadLoadOrder(outDir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(outDir, chunkDirName, orderFileName))
	if err != nil {
		return nil, err
	}
	return strings.Fields(string(data)), nil
}
