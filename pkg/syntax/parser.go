package syntax

import (
	"fmt"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// ParseAST parses the given JavaScript code and returns the goja program.
func ParseAST(filename, code string) (*ast.Program, error) {
	// ParseFile(fileSet, filename, src, mode); no file set, default mode
	return parser.ParseFile(nil, filename, code, 0)
}

// Parse parses JavaScript code and lowers it into the analysis tree.
func Parse(filename, code string) (*Program, error) {
	program, err := ParseAST(filename, code)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	prog := Lower(program)
	prog.Filename = filename
	return prog, nil
}
