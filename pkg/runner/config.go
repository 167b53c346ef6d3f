package runner

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/lcalzada-xor/jstaint/pkg/config"
)

// Options holds all configuration options for the runner
type Options struct {
	// Analysis
	Source      string
	Sink        string
	Concurrency int

	// Output
	OutputFormat string
	OutputFile   string
	Write        bool
	Color        bool
	Verbose      int
	Silent       bool
}

// DefaultOptions returns a new Options struct with default values
func DefaultOptions() *Options {
	return &Options{
		Source:       config.DefaultSource,
		Sink:         config.DefaultSink,
		Concurrency:  config.DefaultConcurrency,
		OutputFormat: config.DefaultFormat,
	}
}

// OptionsFromViper reads the options bound by config.Bind.
func OptionsFromViper(v *viper.Viper) *Options {
	return &Options{
		Source:       v.GetString(config.CSource.Key),
		Sink:         v.GetString(config.CSink.Key),
		Concurrency:  v.GetInt(config.CConcurrency.Key),
		OutputFormat: v.GetString(config.CFormat.Key),
		OutputFile:   v.GetString(config.COutput.Key),
		Write:        v.GetBool(config.CWrite.Key),
		Verbose:      v.GetInt(config.CVerbose.Key),
		Silent:       v.GetBool(config.CSilent.Key),
	}
}

// Validate checks the options and fills zero values with defaults.
func (o *Options) Validate() error {
	o.OutputFormat = strings.ToLower(strings.TrimSpace(o.OutputFormat))
	if o.OutputFormat == "" {
		o.OutputFormat = config.DefaultFormat
	}
	if !lo.Contains(config.Formats, o.OutputFormat) {
		return fmt.Errorf("invalid output format %q (want one of %s)", o.OutputFormat, strings.Join(config.Formats, ", "))
	}
	if o.Source == "" {
		o.Source = config.DefaultSource
	}
	if o.Sink == "" {
		o.Sink = config.DefaultSink
	}
	if o.Source == o.Sink {
		return fmt.Errorf("source and sink must differ, both are %q", o.Source)
	}
	if o.Concurrency < 1 {
		o.Concurrency = config.DefaultConcurrency
	}
	return nil
}

// VerboseLevel returns the logger verbosity implied by the options.
func (o *Options) VerboseLevel() int {
	if o.Silent {
		return 0
	}
	return o.Verbose
}
