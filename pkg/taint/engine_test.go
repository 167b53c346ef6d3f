package taint

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lcalzada-xor/jstaint/pkg/models"
	"github.com/lcalzada-xor/jstaint/pkg/syntax"
)

func analyze(t *testing.T, code string) []*Scope {
	t.Helper()
	prog, err := syntax.Parse("test.js", code)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	scopes, err := New(Config{}).AnalyzeProgram(prog)
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	return scopes
}

func reports(scopes []*Scope) map[string]models.ScopeReport {
	out := make(map[string]models.ScopeReport, len(scopes))
	for _, s := range scopes {
		out[s.Name] = Report(s)
	}
	return out
}

func rep(must, may []string) models.ScopeReport {
	return models.ScopeReport{MustReach: must, MayReach: may}.Normalize()
}

func TestAnalyze_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		code string
		want map[string]models.ScopeReport
	}{
		{
			name: "A unconditional sink is must",
			code: "function f(){ var x = retSource(); sink(x); }",
			want: map[string]models.ScopeReport{"f@1": rep([]string{"x@1"}, []string{"x@1"})},
		},
		{
			name: "B conditional sink is may",
			code: "function f(){ var x = retSource(); if (cond) { sink(x); } }",
			want: map[string]models.ScopeReport{"f@1": rep(nil, []string{"x@1"})},
		},
		{
			name: "C constant false branch never reaches",
			code: "function f(){ var x = retSource(); if (false) { sink(x); } }",
			want: map[string]models.ScopeReport{"f@1": rep(nil, nil)},
		},
		{
			name: "D dependency on a source",
			code: "function f(){ var y = retSource(); var x = y; sink(x); }",
			want: map[string]models.ScopeReport{"f@1": rep([]string{"y@1"}, []string{"y@1"})},
		},
		{
			name: "E no source",
			code: "function f(){ var x = 5; sink(x); }",
			want: map[string]models.ScopeReport{"f@1": rep(nil, nil)},
		},
		{
			name: "constant true branch is must",
			code: "function f(){ var x = retSource(); if (true) { sink(x); } }",
			want: map[string]models.ScopeReport{"f@1": rep([]string{"x@1"}, []string{"x@1"})},
		},
		{
			name: "falsy const name",
			code: "function f(){ const DEBUG = 0; var x = retSource(); if (DEBUG) { sink(x); } }",
			want: map[string]models.ScopeReport{"f@1": rep(nil, nil)},
		},
		{
			name: "sink after conditional uses outer context",
			code: "function f(){ var x = retSource(); if (c) { x.y = 1; } sink(x); }",
			want: map[string]models.ScopeReport{"f@1": rep([]string{"x@1"}, []string{"x@1"})},
		},
		{
			name: "switch bodies are may",
			code: "function f(){ var x = retSource(); switch (k) { case 1: sink(x); break; default: } }",
			want: map[string]models.ScopeReport{"f@1": rep(nil, []string{"x@1"})},
		},
		{
			name: "else of constant true never runs",
			code: "function f(){ var x = retSource(); if (1) {} else { sink(x); } }",
			want: map[string]models.ScopeReport{"f@1": rep(nil, nil)},
		},
		{
			name: "else of unknown test is may",
			code: "function f(){ var x = retSource(); if (c) {} else { sink(x); } }",
			want: map[string]models.ScopeReport{"f@1": rep(nil, []string{"x@1"})},
		},
		{
			name: "nested conditionals compose",
			code: "function f(){ var x = retSource(); if (a) { if (true) { sink(x); } } }",
			want: map[string]models.ScopeReport{"f@1": rep(nil, []string{"x@1"})},
		},
		{
			name: "comparison against literal is unknown",
			code: "function f(){ var x = retSource(); while (i == 0) { sink(x); } }",
			want: map[string]models.ScopeReport{"f@1": rep(nil, []string{"x@1"})},
		},
		{
			name: "for without test is must",
			code: "function f(){ var x = retSource(); for (;;) { sink(x); } }",
			want: map[string]models.ScopeReport{"f@1": rep([]string{"x@1"}, []string{"x@1"})},
		},
		{
			name: "for-of body is may",
			code: "function f(){ var x = retSource(); for (var e of list) { sink(x); } }",
			want: map[string]models.ScopeReport{"f@1": rep(nil, []string{"x@1"})},
		},
		{
			name: "source with arguments is ignored",
			code: "function f(){ var x = retSource(1); sink(x); }",
			want: map[string]models.ScopeReport{"f@1": rep(nil, nil)},
		},
		{
			name: "sink with two arguments is ignored",
			code: "function f(){ var x = retSource(); sink(x, 1); }",
			want: map[string]models.ScopeReport{"f@1": rep(nil, nil)},
		},
		{
			name: "object literal values are dependencies",
			code: "function f(){ var s = retSource(); var o = { a: s }; sink(o); }",
			want: map[string]models.ScopeReport{"f@1": rep([]string{"s@1"}, []string{"s@1"})},
		},
		{
			name: "member assignment aliases the object",
			code: "function f(){ var s = retSource(); var o = {}; o.p = s; sink(o); }",
			want: map[string]models.ScopeReport{"f@1": rep([]string{"s@1"}, []string{"s@1"})},
		},
		{
			name: "method call aliases the receiver",
			code: "function f(){ var s = retSource(); var a = []; a.push(s); sink(a); }",
			want: map[string]models.ScopeReport{"f@1": rep([]string{"s@1"}, []string{"s@1"})},
		},
		{
			name: "flattened chain",
			code: "function f(){ var s = retSource(); var a = s; var b = a; var c = b; sink(c); }",
			want: map[string]models.ScopeReport{"f@1": rep([]string{"s@1"}, []string{"s@1"})},
		},
		{
			name: "self assignment is harmless",
			code: "function f(){ var x = retSource(); x = x; sink(x); }",
			want: map[string]models.ScopeReport{"f@1": rep([]string{"x@1"}, []string{"x@1"})},
		},
		{
			name: "chained assignment",
			code: "function f(){ var a, b; a = b = retSource(); sink(a); }",
			want: map[string]models.ScopeReport{"f@1": rep([]string{"b@1"}, []string{"b@1"})},
		},
		{
			name: "nested functions are separate scopes",
			code: "function f(){ var x = retSource(); function g(){ sink(x); } }",
			want: map[string]models.ScopeReport{
				"f@1": rep(nil, nil),
				"g@1": rep(nil, nil),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reports(analyze(t, tt.code))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("report mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnalyze_MultipleLines(t *testing.T) {
	code := `function handler(req) {
  var a = retSource();
  var b = retSource();
  if (req.ok) {
    sink(b);
  }
  sink(a);
}`
	got := reports(analyze(t, code))
	want := map[string]models.ScopeReport{
		"handler@1": rep([]string{"a@2"}, []string{"a@2", "b@3"}),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyze_MustIsNotDowngraded(t *testing.T) {
	code := "function f(){ var x = retSource(); sink(x); if (c) { sink(x); } }"
	got := reports(analyze(t, code))
	want := map[string]models.ScopeReport{"f@1": rep([]string{"x@1"}, []string{"x@1"})}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyze_MayUpgradesToMust(t *testing.T) {
	code := "function f(){ var x = retSource(); if (c) { sink(x); } sink(x); }"
	s := analyze(t, code)[0]
	v, _ := s.Lookup("x")
	if v.Taint != TaintMust {
		t.Errorf("expected must, got %s", v.Taint)
	}
}

func TestAnalyze_NeverBodyRegistersNothing(t *testing.T) {
	code := "function f(){ var x = 1; if (false) { var hidden = retSource(); other = 2; } while (0) { var h2; } }"
	s := analyze(t, code)[0]
	for _, name := range []string{"hidden", "other", "h2"} {
		if _, ok := s.Lookup(name); ok {
			t.Errorf("%s should not be registered", name)
		}
	}
	if s.Len() != 1 {
		t.Errorf("expected only x, got %v", s.Definitions())
	}
}

func TestAnalyze_ReachabilityRestored(t *testing.T) {
	code := "function f(){ var x = 1; if (a) { if (b) { var y = 2; } } switch (k) { default: } for (const i in o) {} }"
	s := analyze(t, code)[0]
	for _, v := range s.Definitions() {
		if v.Reachable != Always {
			t.Errorf("%s left with %s", v.ID(), v.Reachable)
		}
	}
	y, ok := s.Lookup("y")
	if !ok || y.Line != 1 {
		t.Fatalf("expected y to be registered, got %v", y)
	}
}

func TestAnalyze_VariableFirstSeenInBranch(t *testing.T) {
	code := "function f(){ if (c) { var x = retSource(); sink(x); } }"
	got := reports(analyze(t, code))
	want := map[string]models.ScopeReport{"f@1": rep(nil, []string{"x@1"})}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyze_Escaped(t *testing.T) {
	code := "function f(p){ var x = p; g = x; }"
	s := analyze(t, code)[0]
	tests := map[string]bool{"p": false, "x": false, "g": true}
	for name, want := range tests {
		v, ok := s.Lookup(name)
		if !ok {
			t.Fatalf("%s not registered", name)
		}
		if v.Escaped != want {
			t.Errorf("%s escaped = %v, want %v", name, v.Escaped, want)
		}
	}
}

func TestAnalyze_CustomNames(t *testing.T) {
	prog, err := syntax.Parse("test.js", "function f(){ var x = location(); write(x); var y = retSource(); sink(y); }")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	scopes, err := New(Config{SourceName: "location", SinkName: "write"}).AnalyzeProgram(prog)
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	want := rep([]string{"x@1"}, []string{"x@1"})
	if diff := cmp.Diff(want, Report(scopes[0])); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	code := `function f(){
  var a = retSource(), b = { k: a };
  if (c) { sink(b); }
  for (var i = 0; i < n; i++) { b.push(i); }
  sink(a);
}`
	prog, err := syntax.Parse("test.js", code)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	an := New(Config{})
	first, err := an.AnalyzeProgram(prog)
	if err != nil {
		t.Fatal(err)
	}
	second, err := an.AnalyzeProgram(prog)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(reports(first), reports(second)); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestAnalyze_MustImpliesMay(t *testing.T) {
	code := `function f(){
  var a = retSource(), b = retSource(), c = retSource();
  sink(a);
  if (x) { sink(b); }
  switch (y) { case 1: sink(c); }
  sink(c);
}`
	for _, s := range analyze(t, code) {
		r := Report(s)
		for _, id := range r.MustReach {
			found := false
			for _, m := range r.MayReach {
				found = found || m == id
			}
			if !found {
				t.Errorf("%s is must but not may", id)
			}
		}
	}
}

func TestAnalyzeFunction_Malformed(t *testing.T) {
	an := New(Config{})
	if _, err := an.AnalyzeFunction(nil, nil); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected malformed input for nil root, got %v", err)
	}
	if _, err := an.AnalyzeProgram(nil); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected malformed input for nil program, got %v", err)
	}

	block := &syntax.Other{Kind: "block"}
	block.Nodes = []syntax.Node{block}

	sum := &syntax.Operation{Operator: "+"}
	sum.Operands = []syntax.Node{&syntax.Name{Ident: "a"}, sum}

	not := &syntax.Operation{Operator: "!"}
	not.Operands = []syntax.Node{not}

	chain := &syntax.Member{PropName: "p"}
	chain.Object = chain

	tests := []struct {
		name string
		body []syntax.Node
	}{
		{"statement", []syntax.Node{block}},
		{"condition operand", []syntax.Node{&syntax.Conditional{Kind: syntax.CondIf, Test: sum, Body: &syntax.Other{Kind: "block"}}}},
		{"negated condition", []syntax.Node{&syntax.Conditional{Kind: syntax.CondWhile, Test: not}}},
		{"member target", []syntax.Node{&syntax.Assignment{Operator: "=", Target: chain, Value: &syntax.Name{Ident: "v"}}}},
		{"member callee", []syntax.Node{&syntax.Call{Callee: chain, Args: []syntax.Node{&syntax.Name{Ident: "v"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := an.AnalyzeFunction(&syntax.Function{Name: "f", Body: tt.body}, nil)
			var aerr *AnalysisError
			if !errors.As(err, &aerr) || aerr.Kind != MalformedInput {
				t.Errorf("expected AnalysisError for cyclic tree, got %v", err)
			}
		})
	}
}

func TestAnalyze_ShadowedConstIsNotFolded(t *testing.T) {
	may := map[string]models.ScopeReport{"f@1": rep(nil, []string{"m@1"})}
	tests := []struct {
		name string
		code string
	}{
		{"let in inner block", "function f(){ const c = false; { let c = q; if (c) { var m = retSource(); sink(m); } } }"},
		{"for-of variable", "function f(){ const c = 0; for (let c of xs) { if (c) { var m = retSource(); sink(m); } } }"},
		{"catch parameter", "function f(){ const c = ''; try { g(); } catch (c) { if (c) { var m = retSource(); sink(m); } } }"},
		{"destructured let", "function f(){ const c = null; { let {c} = o; if (c) { var m = retSource(); sink(m); } } }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(may, reports(analyze(t, tt.code))); diff != "" {
				t.Errorf("report mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnalyzeFunction_SharedSubtree(t *testing.T) {
	shared := &syntax.Name{Ident: "s"}
	fn := &syntax.Function{Name: "f", Body: []syntax.Node{
		&syntax.Assignment{Operator: "=", Target: &syntax.Name{Ident: "a"}, Value: shared},
		&syntax.Assignment{Operator: "=", Target: &syntax.Name{Ident: "b"}, Value: shared},
	}}
	s, err := New(Config{}).AnalyzeFunction(fn, nil)
	if err != nil {
		t.Fatalf("shared subtree is not a cycle: %v", err)
	}
	if s.Name != "f@0" || s.Len() != 3 {
		t.Errorf("unexpected scope %s with %d variables", s.Name, s.Len())
	}
}
