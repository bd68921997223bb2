package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"maps"
	"os"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/amterp/color"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/prometheus/client_golang/prometheus"
	ag "github.com/rhansen/artifactgraph"
	"github.com/rhansen/artifactgraph/internal/itertools"
	"github.com/rhansen/artifactgraph/internal/logging"
	"github.com/rhansen/artifactgraph/locator"
)

var (
	cyanf    = color.New(color.FgCyan).SprintfFunc()
	hicyanf  = color.New(color.FgHiCyan).SprintfFunc()
	hiblackf = color.New(color.FgHiBlack).SprintfFunc()
)

type outputFn = func(ctx context.Context, g *ag.ResolvedGraph) error

type config struct {
	files     []string
	policy    ag.ConflictResolutionPolicyConfig
	newest    bool
	jobs      int
	mediate   bool
	timeout   time.Duration
	cacheSize int
	stats     bool
	output    *outputFn
}

func ver() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi.Main.Version == "(devel)" {
		return ""
	}
	return bi.Main.Version
}

var allOutputFuncs = [...]outputFn{
	outputTree,
	outputRaw,
	outputDot,
	outputLevels,
}

var allOutput = map[string]*outputFn{
	"tree":   &allOutputFuncs[0],
	"raw":    &allOutputFuncs[1],
	"dot":    &allOutputFuncs[2],
	"levels": &allOutputFuncs[3],
}

func outputTree(ctx context.Context, g *ag.ResolvedGraph) error {
	seenMsg := hiblackf(" (repeat)")
	seen := mapset.NewThreadUnsafeSet[ag.PackageKey]()
	var visit func(a ag.Artifact, indent int)
	visit = func(a ag.Artifact, indent int) {
		wasSeen := !seen.Add(a.Key())
		fmt.Print(strings.Repeat("  ", indent))
		if wasSeen {
			fmt.Printf("%s%s", hiblackf("%v", a), seenMsg)
		} else {
			fmt.Print(a)
		}
		if n := len(g.Contenders(a.Key())); n > 1 {
			fmt.Print(hicyanf(" (%d contenders)", n))
		}
		fmt.Print("\n")
		if !wasSeen {
			for d := range g.DirectDeps(a.Key()) {
				visit(d, indent+1)
			}
		}
	}
	root := g.Root()
	seen.Add(root.Key())
	fmt.Println(cyanf("%v", root))
	for d := range g.DirectDeps(root.Key()) {
		visit(d, 1)
	}
	return nil
}

func outputRaw(ctx context.Context, g *ag.ResolvedGraph) error {
	_, err := g.WriteTo(os.Stdout)
	return err
}

func outputDot(ctx context.Context, g *ag.ResolvedGraph) error {
	root := g.Root()
	name := func(k ag.PackageKey) string {
		if a, ok := g.Get(k); ok {
			return a.Coordinate.String()
		}
		return root.String()
	}
	fmt.Print("digraph {\n")
	fmt.Print("  outputorder= \"edgesfirst\";\n")
	fmt.Print("  overlap = prism;\n")
	fmt.Print("  overlap_scaling = -10;\n")
	fmt.Print("  node [style=filled,fillcolor=\"white\",shape=box];\n")
	fmt.Printf("  %q [fillcolor=\"black\",fontcolor=\"white\"];\n", root)
	for a := range g.Artifacts() {
		fmt.Printf("  %q [tooltip=%q];\n", a.Coordinate, a.Scope)
	}
	for a := range g.Artifacts() {
		e, _ := g.Edge(a.Key())
		attrs := []string{fmt.Sprintf("label=%q", e.DeclaredScope)}
		if e.Optional {
			attrs = append(attrs, "class=\"optional\"", "style=\"dashed\"")
		}
		fmt.Printf("  %q -> %q [%s];\n", name(e.From.Key()), a.Coordinate, strings.Join(attrs, ","))
	}
	fmt.Print("}\n")
	return nil
}

func outputLevels(ctx context.Context, g *ag.ResolvedGraph) error {
	if g.Len() == 0 {
		return nil
	}
	for d := range itertools.Range(0, g.MaxDepth()+1) {
		n := itertools.Count(g.Level(d))
		fmt.Println(hiblackf("depth %d (%d):", d, n))
		for s := range itertools.Stringify(g.Level(d)) {
			fmt.Printf("  %s\n", s)
		}
	}
	return nil
}

// printStats writes the locator metrics gathered in reg to standard error.
func printStats(reg prometheus.Gatherer) error {
	mfs, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather locator metrics: %w", err)
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			op := ""
			for _, l := range m.GetLabel() {
				if l.GetName() == "op" {
					op = l.GetValue()
				}
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(os.Stderr, "%s{op=%q} %v\n", mf.GetName(), op, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(os.Stderr, "%s{op=%q} count=%d sum=%.6fs\n",
					mf.GetName(), op, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}

func run(ctx context.Context, cfg *config, file string) error {
	ws, err := locator.DecodeFile(file)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	loc, err := locator.NewInstrumented(ws.Locator, reg)
	if err != nil {
		return err
	}
	var l ag.Locator = loc
	if cfg.cacheSize > 0 {
		if l, err = locator.NewCached(loc, cfg.cacheSize); err != nil {
			return err
		}
	}
	policy := cfg.policy.Policy()
	if cfg.newest {
		policy = ag.NewestWins
	}
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}
	slog.DebugContext(ctx, "resolving", "root", ws.Root, "file", file, "managed", len(ws.Management))
	opts := []ag.Option{ag.WithScopeMediation(cfg.mediate)}
	if cfg.jobs > 0 {
		opts = append(opts, ag.WithConcurrency(cfg.jobs))
	}
	g, err := ag.Resolve(ctx, ws.Root, ws.Management, policy, l, opts...)
	if cfg.stats {
		if err := printStats(reg); err != nil {
			slog.WarnContext(ctx, "no locator statistics", "error", err)
		}
	}
	if err != nil {
		return err
	}
	slog.Log(ctx, logging.LevelVerbose, "resolved", "root", ws.Root, "artifacts", g.Len(), "depth", g.MaxDepth())
	return (*cfg.output)(ctx, g)
}

var slogLevel = func() *slog.LevelVar {
	lvl := &slog.LevelVar{}
	lvl.Set(logging.LevelInfo)
	slog.SetDefault(slog.New(logging.NewTextHandler(os.Stderr, lvl)))
	return lvl
}()

func choiceFlag[T any](p *T, name string, choices map[string]T, dflt string, post func(string) error, usage string) {
	cstr := strings.Join(slices.Sorted(maps.Keys(choices)), ", ")
	var ok bool
	if *p, ok = choices[dflt]; !ok {
		panic(fmt.Errorf("invalid default for %v option: %v", dflt, name))
	}
	usage += fmt.Sprintf(" (one of: %v; default: %v)", cstr, dflt)
	flag.Func(name, usage, func(arg string) error {
		if arg == "" {
			arg = dflt
		}
		v, ok := choices[arg]
		if !ok {
			return fmt.Errorf("expected one of: %v", cstr)
		}
		*p = v
		if post != nil {
			return post(arg)
		}
		return nil
	})
}

func parseFlags() *config {
	cfg := &config{}

	bumpLogLevel := func(lower bool) {
		slog.Debug("log level pre-change", "level", slogLevel.Level())
		slogLevel.Set(logging.BumpLevel(slogLevel.Level(), lower))
		slog.Debug("log level post-change", "level", slogLevel.Level())
	}
	setLogLevel := func(arg string) error {
		lvl, err := logging.StringToLevel(arg)
		if err != nil {
			return err
		}
		slogLevel.Set(lvl)
		return nil
	}
	flag.BoolFunc("v", "Increase log verbosity.", func(arg string) error {
		switch arg {
		case "", "true":
			bumpLogLevel(true)
		default:
			return setLogLevel(arg)
		}
		return nil
	})
	flag.BoolFunc("q", "Decrease log verbosity.", func(arg string) error {
		switch arg {
		case "", "true":
			bumpLogLevel(false)
		default:
			return setLogLevel(arg)
		}
		return nil
	})

	colorChoices := map[string]bool{
		"auto":   color.NoColor,
		"never":  true,
		"always": false,
	}
	choiceFlag(&color.NoColor, "color", colorChoices, "auto", nil,
		"Output colors according to `mode`.")
	policyChoices := map[string]bool{
		"nearest":  true,
		"farthest": false,
		"newest":   true,
	}
	choiceFlag(&cfg.policy.CloserFirst, "policy", policyChoices, "nearest",
		func(arg string) error {
			cfg.newest = arg == "newest"
			return nil
		},
		"Settle version conflicts according to `mode`.  The nearest and farthest modes break depth ties by version.")
	oldest := false
	flag.BoolVar(&oldest, "oldest", false,
		"Break ties in favor of the older version.  Not compatible with '-policy=newest'.")
	flag.IntVar(&cfg.jobs, "jobs", 0,
		"Query the repository with at most `n` concurrent requests (0 means one per CPU).")
	flag.BoolVar(&cfg.mediate, "mediate-scopes", false,
		"Let a losing edge widen the winner's scope (e.g., test to compile).")
	flag.DurationVar(&cfg.timeout, "timeout", 0,
		"Abort the resolution after `duration` (0 means no limit).")
	flag.IntVar(&cfg.cacheSize, "cache", 0,
		"Cache up to `n` repository answers in memory (0 disables the cache).")
	flag.BoolVar(&cfg.stats, "stats", false,
		"Print repository query statistics to standard error.")
	choiceFlag(&cfg.output, "format", allOutput, "tree", nil,
		"Print the resolved graph according to `mode`.")
	help := func(string) error {
		// Help output goes to standard output, not standard error, when the user explicitly asks for
		// it, so that it can be piped to a pager.
		flag.CommandLine.SetOutput(os.Stdout)
		flag.Usage()
		os.Exit(0)
		return nil
	}
	helpUsage := "Print usage information and exit."
	flag.BoolFunc("h", helpUsage, help)
	flag.BoolFunc("help", helpUsage, help)
	flag.BoolFunc("version", "Print the version and exit.", func(string) error {
		v := ver()
		if v == "" {
			log.Fatal("the Go build information is unavalable; try passing the \"-buildvcs=true\" build option to go")
		}
		fmt.Printf("%s\n", v)
		os.Exit(0)
		return nil
	})
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options] repo.hcl\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if oldest {
		if cfg.newest {
			log.Fatal("the -oldest option cannot be used in combination with '-policy=newest'")
		}
		cfg.policy.NewerFirst = false
	} else {
		cfg.policy.NewerFirst = true
	}
	if cfg.jobs < 0 {
		log.Fatal("the -jobs option must not be negative")
	}
	if cfg.cacheSize < 0 {
		log.Fatal("the -cache option must not be negative")
	}
	cfg.files = flag.Args()
	if len(cfg.files) != 1 {
		log.Fatal("exactly one repository file is required")
	}
	return cfg
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := parseFlags()
	for _, file := range cfg.files {
		if err := run(ctx, cfg, file); err != nil {
			slog.ErrorContext(ctx, "failed", "error", err)
			os.Exit(1)
		}
	}
}
