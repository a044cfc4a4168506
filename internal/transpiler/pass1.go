package transpiler

import (
	"github.com/funvibe/talescript/internal/ast"
	"github.com/funvibe/talescript/internal/diagnostics"
	"github.com/funvibe/talescript/internal/symbols"
	"github.com/funvibe/talescript/internal/token"
)

// Pass1 builds the label registry of a compilation unit. Labels are visited
// depth first in document order, files in the order given, so IDs and paths
// depend only on the input. The returned registry is sealed, also when
// errors were reported.
func Pass1(files ...*ast.ScriptFile) (*symbols.Registry, error) {
	reg := symbols.NewRegistry()
	var errs diagnostics.List

	for _, sf := range files {
		if err := reg.DefineFile(sf.File, sf.Blocks()); err != nil {
			errs = appendErr(errs, err)
		}
		for _, item := range sf.Items {
			switch it := item.(type) {
			case *ast.WordDef:
				if err := reg.DefineWord(it.Name, it.Values); err != nil {
					errs = appendErr(errs, err)
				}
			case *ast.Label:
				errs = defineTree(reg, it, nil, sf.File, errs)
			}
		}
	}

	// Every word is known only now, so aliases are resolved in a second sweep.
	for _, e := range reg.Entries() {
		errs = collectActors(reg, e, errs)
	}

	reg.Seal()
	return reg, errs.Err()
}

func defineTree(reg *symbols.Registry, label *ast.Label, parent *symbols.LabelEntry, file string, errs diagnostics.List) diagnostics.List {
	entry, err := reg.Define(label, parent, file)
	if err != nil {
		return appendErr(errs, err)
	}
	for _, local := range label.LocalLabels {
		errs = defineTree(reg, local, entry, file, errs)
	}
	return errs
}

func collectActors(reg *symbols.Registry, entry *symbols.LabelEntry, errs diagnostics.List) diagnostics.List {
	for _, stmt := range entry.Body {
		ds, ok := stmt.(*ast.DialogueStatement)
		if !ok {
			continue
		}
		name, err := ResolveActor(reg, entry, ds)
		if err != nil {
			errs = appendErr(errs, err)
			continue
		}
		entry.Actors.Add(name)
	}
	return errs
}

// ResolveActor returns the actor name a dialogue line speaks with. An actor
// that names a word with exactly one value is an alias for that value.
func ResolveActor(reg *symbols.Registry, entry *symbols.LabelEntry, ds *ast.DialogueStatement) (string, error) {
	vals, ok := reg.Word(entry, ds.Actor)
	if !ok {
		return ds.Actor, nil
	}
	if len(vals) != 1 {
		err := diagnostics.Errorf(diagnostics.ErrT003, ds.Token,
			"actor alias %q is ambiguous: word has %d values", ds.Actor, len(vals))
		err.File = entry.File
		err.Label = entry.FnPath
		return "", err
	}
	return vals[0], nil
}

func appendErr(errs diagnostics.List, err error) diagnostics.List {
	if de, ok := err.(*diagnostics.DiagnosticError); ok {
		return append(errs, de)
	}
	return append(errs, diagnostics.NewError(diagnostics.ErrT005, token.Token{}, err.Error()))
}
