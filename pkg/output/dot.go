package output

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/graph/encoding/dot"

	"github.com/lcalzada-xor/jstaint/pkg/taint"
)

// Dot renders one dependency digraph per scope, in report order.
func Dot(doc Document) (string, error) {
	var sb strings.Builder
	for _, name := range doc.Results.Keys() {
		s, ok := doc.Scopes[name]
		if !ok {
			continue
		}
		data, err := dot.Marshal(taint.DependencyGraph(s), name, "", "\t")
		if err != nil {
			return "", fmt.Errorf("marshal graph of %s: %w", name, err)
		}
		sb.Write(data)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
