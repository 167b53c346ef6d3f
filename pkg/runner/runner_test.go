package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lcalzada-xor/jstaint/pkg/logger"
	"github.com/lcalzada-xor/jstaint/pkg/models"
	"github.com/lcalzada-xor/jstaint/pkg/runner"
)

const scriptA = `function f() {
  var x = retSource();
  sink(x);
}
`

const scriptB = `function f() {
  var x = retSource();
  if (c) { sink(x); }
}
function g() {
  var y = retSource();
  if (d) { sink(y); }
}
`

const page = `<html>
<body>
<script>
function onLoad() {
  var v = retSource();
  sink(v);
}
</script>
</body>
</html>
`

func writeFile(dir, name, content string) string {
	path := filepath.Join(dir, name)
	Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	return path
}

var _ = Describe("Runner", func() {
	var (
		dir     string
		options *runner.Options
		r       *runner.Runner
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		options = runner.DefaultOptions()
		options.Concurrency = 2
	})

	JustBeforeEach(func() {
		var err error
		r, err = runner.NewRunner(options, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(r.Close)
	})

	It("reports every function scope in input order", func() {
		a := writeFile(dir, "a.js", scriptA)
		b := writeFile(dir, "b.js", "function h() {}\n"+scriptB)

		doc, err := r.Run(context.Background(), []runner.Input{{Path: b}, {Path: a}})
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Results.Keys()).To(Equal([]string{"h@1", "f@2", "g@6", "f@1"}))

		rep, ok := doc.Results.Get("f@1")
		Expect(ok).To(BeTrue())
		Expect(rep.MustReach).To(Equal([]string{"x@2"}))
	})

	It("joins scopes that share a key across inputs", func() {
		a := writeFile(dir, "a.js", scriptA)
		b := writeFile(dir, "b.js", scriptB)

		doc, err := r.Run(context.Background(), []runner.Input{{Path: b}, {Path: a}})
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Results.Keys()).To(Equal([]string{"f@1", "g@5"}))

		rep, _ := doc.Results.Get("f@1")
		Expect(rep.MustReach).To(Equal([]string{"x@2"}))
		Expect(rep.MayReach).To(Equal([]string{"x@2"}))
	})

	It("analyses inline scripts of HTML inputs with document lines", func() {
		p := writeFile(dir, "page.html", page)

		doc, err := r.Run(context.Background(), []runner.Input{{Path: p}})
		Expect(err).NotTo(HaveOccurred())
		rep, ok := doc.Results.Get("onLoad@4")
		Expect(ok).To(BeTrue())
		Expect(rep.MustReach).To(Equal([]string{"v@5"}))
	})

	It("reads stdin content", func() {
		inputs, err := runner.InputsFromArgs(nil, strings.NewReader(scriptA))
		Expect(err).NotTo(HaveOccurred())
		Expect(inputs).To(HaveLen(1))
		Expect(inputs[0].Name()).To(Equal(runner.StdinName))

		doc, err := r.Run(context.Background(), inputs)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Results.Keys()).To(Equal([]string{"f@1"}))
	})

	It("deduplicates repeated paths", func() {
		inputs, err := runner.InputsFromArgs([]string{"a.js", "", "a.js", "b.js"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(inputs).To(Equal([]runner.Input{{Path: "a.js"}, {Path: "b.js"}}))
	})

	It("keeps going after a parse error and reports it", func() {
		bad := writeFile(dir, "bad.js", "function broken( {")
		good := writeFile(dir, "good.js", scriptA)

		doc, err := r.Run(context.Background(), []runner.Input{{Path: bad}, {Path: good}, {Path: filepath.Join(dir, "missing.js")}})
		Expect(err).To(MatchError(ContainSubstring("2 of 3 inputs failed")))
		Expect(doc.Results.Keys()).To(Equal([]string{"f@1"}))
	})

	It("is deterministic", func() {
		b := writeFile(dir, "b.js", scriptB)
		var outputs []string
		for i := 0; i < 3; i++ {
			doc, err := r.Run(context.Background(), []runner.Input{{Path: b}})
			Expect(err).NotTo(HaveOccurred())
			var buf bytes.Buffer
			Expect(r.Emit(doc, &buf)).To(Succeed())
			outputs = append(outputs, buf.String())
		}
		Expect(outputs[1]).To(Equal(outputs[0]))
		Expect(outputs[2]).To(Equal(outputs[0]))
	})

	It("stops when the context is cancelled", func() {
		a := writeFile(dir, "a.js", scriptA)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := r.Run(ctx, []runner.Input{{Path: a}})
		Expect(err).To(MatchError(context.Canceled))
	})

	Context("with --write", func() {
		BeforeEach(func() {
			options.Write = true
		})

		It("writes a sibling report per input file", func() {
			a := writeFile(dir, "a.js", scriptA)
			_, err := r.Run(context.Background(), []runner.Input{{Path: a}})
			Expect(err).NotTo(HaveOccurred())

			data, err := os.ReadFile(filepath.Join(dir, "a_out.json"))
			Expect(err).NotTo(HaveOccurred())
			var results models.Results
			Expect(json.Unmarshal(data, &results)).To(Succeed())
			Expect(results.Keys()).To(Equal([]string{"f@1"}))
		})
	})

	Context("with an output file", func() {
		BeforeEach(func() {
			options.OutputFile = filepath.Join(dir, "report.yaml")
			options.OutputFormat = "yaml"
		})

		It("writes the combined report there", func() {
			a := writeFile(dir, "a.js", scriptA)
			doc, err := r.Run(context.Background(), []runner.Input{{Path: a}})
			Expect(err).NotTo(HaveOccurred())

			var buf bytes.Buffer
			Expect(r.Emit(doc, &buf)).To(Succeed())
			Expect(buf.Len()).To(BeZero())

			data, err := os.ReadFile(options.OutputFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("sources_that_must_reach_sinks:"))
		})
	})
})

var _ = Describe("Options", func() {
	It("rejects unknown formats", func() {
		o := runner.DefaultOptions()
		o.OutputFormat = "xml"
		Expect(o.Validate()).To(MatchError(ContainSubstring("invalid output format")))
	})

	It("rejects identical source and sink", func() {
		o := runner.DefaultOptions()
		o.Sink = o.Source
		Expect(o.Validate()).NotTo(Succeed())
	})

	It("fills defaults", func() {
		o := &runner.Options{OutputFormat: " JSON "}
		Expect(o.Validate()).To(Succeed())
		Expect(o.OutputFormat).To(Equal("json"))
		Expect(o.Concurrency).To(BeNumerically(">", 0))
		Expect(o.Source).To(Equal("retSource"))
	})

	It("maps sibling paths", func() {
		Expect(runner.SiblingPath("dir/app.min.js")).To(Equal("dir/app.min_out.json"))
		Expect(runner.SiblingPath("page.html")).To(Equal("page_out.json"))
	})
})
