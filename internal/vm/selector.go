package vm

import (
	"log/slog"

	"github.com/funvibe/talescript/internal/config"
)

// Select resolves a jump or call target seen from scope. Same-named
// candidates are taken in document order, round-robin or at random
// depending on the policy. A name without candidates may still be a full
// label path.
func (rt *Runtime) Select(scope, name string, filters map[string]string) (uint32, bool) {
	reg := rt.unit.Registry
	cands := reg.Candidates(scope, name, filters)
	switch len(cands) {
	case 0:
		if e, ok := reg.Lookup(name); ok && e.Matches(filters) {
			return e.ID, true
		}
		rt.log.Debug("no label candidates", slog.String("scope", scope), slog.String("name", name))
		return 0, false
	case 1:
		return cands[0].ID, true
	}

	var i int
	if rt.opts.Policy == config.SelectRandom {
		i = rt.rand.IntN(len(cands))
	} else {
		i = rt.unit.nextTurn(turnKey(scope, name, filters), len(cands))
	}
	rt.log.Debug("label selected",
		slog.String("name", name),
		slog.String("path", cands[i].FnPath),
		slog.Int("candidates", len(cands)))
	return cands[i].ID, true
}
