package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/lcalzada-xor/jstaint/pkg/config"
	"github.com/lcalzada-xor/jstaint/pkg/models"
	"github.com/lcalzada-xor/jstaint/pkg/taint"
)

// Document is a combined analysis result ready to be rendered.
type Document struct {
	Results *models.Results
	// Scopes backs the dot format; keyed like Results.
	Scopes map[string]*taint.Scope
}

// Format renders doc in the selected format. Color only affects human.
func Format(doc Document, format string, color bool) (string, error) {
	if doc.Results == nil {
		doc.Results = models.NewResults()
	}
	switch format {
	case config.FormatJSON, "":
		out, err := json.MarshalIndent(doc.Results, "", "    ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal result: %w", err)
		}
		return string(out) + "\n", nil

	case config.FormatCompact:
		out, err := json.Marshal(doc.Results)
		if err != nil {
			return "", fmt.Errorf("failed to marshal result: %w", err)
		}
		return string(out) + "\n", nil

	case config.FormatYAML:
		out, err := yaml.Marshal(doc.Results)
		if err != nil {
			return "", fmt.Errorf("failed to marshal result: %w", err)
		}
		return string(out), nil

	case config.FormatHuman:
		return human(doc.Results, color), nil

	case config.FormatDOT:
		return Dot(doc)

	default:
		return "", fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(config.Formats, ", "))
	}
}

type palette struct {
	purple, lightPurple, darkPurple, red, orange, reset string
}

func newPalette(color bool) palette {
	if !color {
		return palette{}
	}
	// Purple Gothic Theme
	return palette{
		purple:      "\x1b[38;5;129m",
		lightPurple: "\x1b[38;5;141m",
		darkPurple:  "\x1b[38;5;93m",
		red:         "\x1b[38;5;196m",
		orange:      "\x1b[38;5;214m",
		reset:       "\x1b[0m",
	}
}

func human(results *models.Results, color bool) string {
	c := newPalette(color)
	var sb strings.Builder

	tainted := 0
	for _, e := range results.Entries() {
		if len(e.Report.MayReach) == 0 {
			sb.WriteString(fmt.Sprintf("%s[-] %s%s: no source reaches a sink\n", c.darkPurple, e.Scope, c.reset))
			continue
		}
		tainted++
		sb.WriteString(fmt.Sprintf("\n%s[+] %s%s\n", c.purple, e.Scope, c.reset))
		if len(e.Report.MustReach) > 0 {
			sb.WriteString(fmt.Sprintf("    %sMust reach:%s %s%s%s\n", c.darkPurple, c.reset, c.red, strings.Join(e.Report.MustReach, ", "), c.reset))
		}
		if mayOnly := lo.Without(e.Report.MayReach, e.Report.MustReach...); len(mayOnly) > 0 {
			sb.WriteString(fmt.Sprintf("    %sMay reach:%s  %s%s%s\n", c.darkPurple, c.reset, c.orange, strings.Join(mayOnly, ", "), c.reset))
		}
	}
	sb.WriteString(fmt.Sprintf("\n%s[*] %d scopes analysed, %d with tainted sinks%s\n", c.lightPurple, results.Len(), tainted, c.reset))
	return sb.String()
}
