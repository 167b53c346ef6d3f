package taint

import (
	"github.com/samber/lo"

	"github.com/lcalzada-xor/jstaint/pkg/models"
)

// Report projects a scope onto its must/may lists. Must variables appear in
// both lists.
func Report(s *Scope) models.ScopeReport {
	must := lo.FilterMap(s.vars, func(v *Variable, _ int) (string, bool) {
		return v.ID(), v.Taint == TaintMust
	})
	may := lo.FilterMap(s.vars, func(v *Variable, _ int) (string, bool) {
		return v.ID(), v.Taint >= TaintMay
	})
	return models.ScopeReport{MustReach: must, MayReach: may}.Normalize()
}

// Collect adds the report of every scope to results in order, joining scopes
// that share a name with the one already present.
func Collect(results *models.Results, joined map[string]*Scope, scopes ...*Scope) {
	for _, s := range scopes {
		if prev, ok := joined[s.Name]; ok {
			s = Join(prev, s)
		}
		joined[s.Name] = s
		results.Add(s.Name, Report(s))
	}
}
