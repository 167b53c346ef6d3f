package taint

// Join merges two scopes at a flow merge point. Definitions are unioned by
// name; a variable present in both takes the higher taint, the weaker
// reachability and the union of both dependency sets. The operands are not
// modified.
func Join(a, b *Scope) *Scope {
	switch {
	case a == nil && b == nil:
		return NewScope(UnnamedScope)
	case a == nil:
		a, b = b, nil
	}

	name := a.Name
	if name == UnnamedScope && b != nil {
		name = b.Name
	}
	out := NewScope(name)

	operands := []*Scope{a}
	if b != nil {
		operands = append(operands, b)
	}
	for _, s := range operands {
		for _, v := range s.vars {
			cur, ok := out.byName[v.Name]
			if !ok {
				cur = newVariable(v.Name, v.Line)
				cur.Reachable = v.Reachable
				out.add(cur)
			} else {
				cur.Reachable = Meet(cur.Reachable, v.Reachable)
			}
			if v.Taint > cur.Taint {
				cur.Taint = v.Taint
			}
			cur.Source = cur.Source || v.Source
			cur.Escaped = cur.Escaped || v.Escaped
		}
	}

	// dependents are remapped onto the merged variables
	for _, s := range operands {
		for _, v := range s.vars {
			cur := out.byName[v.Name]
			for _, d := range v.dependent {
				if dep, ok := out.byName[d.Name]; ok {
					cur.addDependent(dep)
				}
			}
		}
	}
	return out
}
