package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/lcalzada-xor/jstaint/pkg/config"
	"github.com/lcalzada-xor/jstaint/pkg/logger"
	"github.com/lcalzada-xor/jstaint/pkg/models"
	"github.com/lcalzada-xor/jstaint/pkg/output"
	"github.com/lcalzada-xor/jstaint/pkg/syntax"
	"github.com/lcalzada-xor/jstaint/pkg/taint"
)

// StdinName names input read from standard input.
const StdinName = "<stdin>"

// Input is one file (or stdin) to analyse. Content is read from Path when nil.
type Input struct {
	Path    string
	Content []byte
}

// Name identifies the input in logs and errors.
func (in Input) Name() string {
	if in.Path == "" {
		return StdinName
	}
	return in.Path
}

// InputsFromArgs builds the input list from command line paths. Repeated
// paths are analysed once; with no paths stdin is read.
func InputsFromArgs(paths []string, stdin io.Reader) ([]Input, error) {
	paths = lo.Uniq(lo.Compact(paths))
	if len(paths) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return []Input{{Content: data}}, nil
	}
	return lo.Map(paths, func(p string, _ int) Input { return Input{Path: p} }), nil
}

// Runner handles the execution of the analysis
type Runner struct {
	options  *Options
	log      *logger.Logger
	analyzer *taint.Analyzer
	pool     *ants.Pool
}

// NewRunner creates a new Runner instance. A nil log selects a console logger
// at the options' verbosity.
func NewRunner(options *Options, log *logger.Logger) (*Runner, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		if options.Silent {
			log = logger.Nop()
		} else {
			log = logger.NewLogger(options.VerboseLevel())
		}
	}
	pool, err := ants.NewPool(options.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to create goroutine pool: %w", err)
	}
	return &Runner{
		options: options,
		log:     log,
		analyzer: taint.New(taint.Config{
			SourceName: options.Source,
			SinkName:   options.Sink,
			Logger:     log,
		}),
		pool: pool,
	}, nil
}

// Close releases the worker pool.
func (r *Runner) Close() {
	r.pool.Release()
}

// fileResult holds the scopes of one input in pre-order.
type fileResult struct {
	input  Input
	scopes []*taint.Scope
	err    error
}

// Run analyses every input and combines the reports in input order. Inputs
// that fail to read or parse are logged and skipped; the returned error then
// summarizes them while the document still holds everything else.
func (r *Runner) Run(ctx context.Context, inputs []Input) (output.Document, error) {
	r.log.V("jstaint %s | %s", config.Version, config.Author)
	r.log.V("source %q, sink %q, %d workers", r.options.Source, r.options.Sink, r.options.Concurrency)

	results := make([]fileResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.options.Concurrency)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scopes, err := r.analyzeInput(gctx, in)
			results[i] = fileResult{input: in, scopes: scopes, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return output.Document{}, err
	}

	doc := output.Document{Results: models.NewResults(), Scopes: make(map[string]*taint.Scope)}
	var failed []error
	for _, res := range results {
		if res.err != nil {
			r.log.Err(res.err, "[!] skipping %s", res.input.Name())
			failed = append(failed, res.err)
			continue
		}
		taint.Collect(doc.Results, doc.Scopes, res.scopes...)

		if r.options.Write && res.input.Path != "" {
			if err := r.writeSibling(res); err != nil {
				r.log.Err(err, "[!] failed to write report for %s", res.input.Name())
				failed = append(failed, err)
			}
		}
	}

	r.log.Info("[*] Analysis complete: %d inputs, %d scopes, %d failed", len(inputs), doc.Results.Len(), len(failed))
	if len(failed) > 0 {
		return doc, fmt.Errorf("%d of %d inputs failed: %w", len(failed), len(inputs), errors.Join(failed...))
	}
	return doc, nil
}

// Emit renders doc to the configured output file, or w when none is set.
func (r *Runner) Emit(doc output.Document, w io.Writer) error {
	text, err := output.Format(doc, r.options.OutputFormat, r.options.Color && r.options.OutputFile == "")
	if err != nil {
		return err
	}
	if r.options.OutputFile != "" {
		if err := os.WriteFile(r.options.OutputFile, []byte(text), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", r.options.OutputFile, err)
		}
		r.log.V("report written to %s", r.options.OutputFile)
		return nil
	}
	_, err = io.WriteString(w, text)
	return err
}

// SiblingPath returns where --write stores the report of path.
func SiblingPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + config.OutputSuffix
}

func (r *Runner) writeSibling(res fileResult) error {
	doc := output.Document{Results: models.NewResults(), Scopes: make(map[string]*taint.Scope)}
	taint.Collect(doc.Results, doc.Scopes, res.scopes...)
	text, err := output.Format(doc, config.FormatJSON, false)
	if err != nil {
		return err
	}
	path := SiblingPath(res.input.Path)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	r.log.V("report for %s written to %s", res.input.Name(), path)
	return nil
}

// unit is one piece of JavaScript of an input.
type unit struct {
	name string
	code string
}

func (r *Runner) units(in Input) ([]unit, error) {
	content := in.Content
	if content == nil {
		data, err := os.ReadFile(in.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", in.Path, err)
		}
		content = data
	}

	isHTML := lo.Contains(config.HTMLExtensions, strings.ToLower(filepath.Ext(in.Path)))
	if in.Path == "" {
		isHTML = syntax.LooksLikeHTML(string(content))
	}
	if !isHTML {
		return []unit{{name: in.Name(), code: string(content)}}, nil
	}

	scripts, err := syntax.ExtractScripts(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("extract scripts of %s: %w", in.Name(), err)
	}
	r.log.Detail("Found %d inline script blocks in %s", len(scripts), in.Name())
	return lo.Map(scripts, func(s syntax.Script, _ int) unit {
		return unit{name: s.Name(in.Name()), code: s.Source()}
	}), nil
}

func (r *Runner) analyzeInput(ctx context.Context, in Input) ([]*taint.Scope, error) {
	units, err := r.units(in)
	if err != nil {
		return nil, err
	}

	var functions []*syntax.Function
	for _, u := range units {
		prog, err := syntax.Parse(u.name, u.code)
		if err != nil {
			return nil, err
		}
		r.log.V("[*] %s: %d functions", u.name, len(prog.Functions))
		functions = append(functions, prog.Functions...)
	}

	scopes := make([]*taint.Scope, len(functions))
	errs := make([]error, len(functions))
	var wg sync.WaitGroup
	for i, fn := range functions {
		if err := ctx.Err(); err != nil {
			break
		}
		i, fn := i, fn
		wg.Add(1)
		task := func() {
			defer wg.Done()
			scopes[i], errs[i] = r.analyzer.AnalyzeFunction(fn, fn)
		}
		if err := r.pool.Submit(task); err != nil {
			// pool closed or overloaded, run inline
			task()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("analyse %s: %w", in.Name(), err)
	}
	return scopes, nil
}
