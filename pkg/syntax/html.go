package syntax

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Script is an inline <script> block extracted from an HTML document.
type Script struct {
	// Index is the 1-based position of the block in the document.
	Index int
	// Line is the document line the script text starts on.
	Line int
	Code string
}

// Name identifies the block within its document.
func (s Script) Name(document string) string {
	return fmt.Sprintf("%s#script%d", document, s.Index)
}

// Source returns the code padded with newlines so that parsed line numbers
// match the enclosing document.
func (s Script) Source() string {
	if s.Line <= 1 {
		return s.Code
	}
	return strings.Repeat("\n", s.Line-1) + s.Code
}

// LooksLikeHTML reports whether body is an HTML document rather than plain
// JavaScript.
func LooksLikeHTML(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<body") || strings.Contains(lower, "<script")
}

// ExtractScripts returns the inline JavaScript blocks of an HTML document in
// document order. Scripts with a src attribute or a non-JavaScript type are
// skipped.
func ExtractScripts(r io.Reader) ([]Script, error) {
	z := html.NewTokenizer(r)
	line := 1
	inScript := false
	var scripts []Script
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				return scripts, nil
			}
			return scripts, fmt.Errorf("tokenize html: %w", z.Err())
		}
		raw := z.Raw()
		newlines := bytes.Count(raw, []byte("\n"))

		switch tt {
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) == "script" {
				inScript = isInlineJavaScript(z, hasAttr)
			}
		case html.EndTagToken:
			inScript = false
		case html.TextToken:
			if inScript && len(bytes.TrimSpace(raw)) > 0 {
				scripts = append(scripts, Script{Index: len(scripts) + 1, Line: line, Code: string(raw)})
			}
		}
		line += newlines
	}
}

func isInlineJavaScript(z *html.Tokenizer, hasAttr bool) bool {
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		switch string(key) {
		case "src":
			return false
		case "type":
			switch strings.ToLower(strings.TrimSpace(string(val))) {
			case "", "module", "text/javascript", "application/javascript", "text/ecmascript", "application/ecmascript":
			default:
				return false
			}
		}
	}
	return true
}
