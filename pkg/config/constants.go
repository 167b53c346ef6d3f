package config

// Version is the current version of jstaint
const Version = "v1.0.0"

// Author is the author of the tool
const Author = "@lcalzada-xor"

// Default Values
const (
	DefaultConcurrency = 8
	DefaultSource      = "retSource"
	DefaultSink        = "sink"
	DefaultFormat      = FormatJSON
	// OutputSuffix is appended to an input's base name by --write.
	OutputSuffix = "_out.json"
)

// Output formats
const (
	FormatJSON    = "json"
	FormatCompact = "compact"
	FormatYAML    = "yaml"
	FormatHuman   = "human"
	FormatDOT     = "dot"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatJSON, FormatCompact, FormatYAML, FormatHuman, FormatDOT}

// HTMLExtensions are the input extensions split into inline scripts.
var HTMLExtensions = []string{".html", ".htm"}
