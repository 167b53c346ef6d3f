package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ScopeReport lists the sources of one function scope that reach a sink.
// Entries are variable ids (`<name>@<line>`) in registration order.
type ScopeReport struct {
	MustReach []string `json:"sources_that_must_reach_sinks" yaml:"sources_that_must_reach_sinks"`
	MayReach  []string `json:"sources_that_may_reach_sinks" yaml:"sources_that_may_reach_sinks"`
}

// Normalize replaces nil lists with empty ones so they serialize as [].
func (r ScopeReport) Normalize() ScopeReport {
	if r.MustReach == nil {
		r.MustReach = []string{}
	}
	if r.MayReach == nil {
		r.MayReach = []string{}
	}
	return r
}

// ScopeResult is one entry of Results.
type ScopeResult struct {
	Scope  string
	Report ScopeReport
}

// Results is an insertion-ordered mapping from scope name to report.
type Results struct {
	entries []ScopeResult
	index   map[string]int
}

// NewResults creates an empty mapping.
func NewResults() *Results {
	return &Results{index: make(map[string]int)}
}

// Add appends a scope report. An existing key keeps its position and has its
// report replaced.
func (r *Results) Add(scope string, report ScopeReport) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	report = report.Normalize()
	if i, ok := r.index[scope]; ok {
		r.entries[i].Report = report
		return
	}
	r.index[scope] = len(r.entries)
	r.entries = append(r.entries, ScopeResult{Scope: scope, Report: report})
}

// Get returns the report stored for scope.
func (r *Results) Get(scope string) (ScopeReport, bool) {
	i, ok := r.index[scope]
	if !ok {
		return ScopeReport{}, false
	}
	return r.entries[i].Report, true
}

// Keys returns the scope names in insertion order.
func (r *Results) Keys() []string {
	keys := make([]string, len(r.entries))
	for i, e := range r.entries {
		keys[i] = e.Scope
	}
	return keys
}

// Entries returns a copy of the entries in insertion order.
func (r *Results) Entries() []ScopeResult {
	return append([]ScopeResult(nil), r.entries...)
}

// Len returns the number of scopes.
func (r *Results) Len() int {
	return len(r.entries)
}

// MarshalJSON writes the mapping as a JSON object, keeping insertion order.
func (r *Results) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Scope)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Report.Normalize())
		if err != nil {
			return nil, fmt.Errorf("marshal scope %s: %w", e.Scope, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping the document's key order.
func (r *Results) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("results: expected object, got %v", tok)
	}
	out := NewResults()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		scope, ok := tok.(string)
		if !ok {
			return fmt.Errorf("results: expected scope name, got %v", tok)
		}
		var report ScopeReport
		if err := dec.Decode(&report); err != nil {
			return fmt.Errorf("results: scope %s: %w", scope, err)
		}
		out.Add(scope, report)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = *out
	return nil
}

// MarshalYAML writes the mapping as a YAML mapping node in insertion order.
func (r *Results) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range r.entries {
		var val yaml.Node
		if err := val.Encode(e.Report.Normalize()); err != nil {
			return nil, fmt.Errorf("marshal scope %s: %w", e.Scope, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Scope},
			&val,
		)
	}
	return node, nil
}
