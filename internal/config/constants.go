package config

import (
	"path/filepath"
	"slices"
	"strings"
)

const (
	AppName = "talescript"
	Version = "0.4.0"
)

const SourceFileExt = ".tale"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".tale", ".talescript"}

// Project and build file names
const (
	ProjectFileName    = "talescript.yaml"
	ProjectFileAltName = "talescript.yml"
	DefaultOutDir      = "build"
	ManifestFileName   = "manifest.db"
	LuaChunkExt        = ".lua"
)

// Label selection policies for same-named labels
const (
	SelectRoundRobin = "round_robin"
	SelectRandom     = "random"
)

// IsSourceFile reports whether path has a script extension.
func IsSourceFile(path string) bool {
	return slices.Contains(SourceFileExtensions, strings.ToLower(filepath.Ext(path)))
}

// TrimSourceExt removes a recognized script extension from name.
func TrimSourceExt(name string) string {
	ext := filepath.Ext(name)
	if slices.Contains(SourceFileExtensions, strings.ToLower(ext)) {
		return strings.TrimSuffix(name, ext)
	}
	return name
}
