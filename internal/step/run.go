package step

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fieldsize/internal/catalog"
	"fieldsize/internal/config"
	"fieldsize/internal/datasource"
	"fieldsize/internal/datasource/file"
	"fieldsize/internal/datasource/httpds"
	"fieldsize/internal/metrics"
	csvparser "fieldsize/internal/parser/csv"
	"fieldsize/internal/sink"
	"fieldsize/internal/transformer"
)

// Test seams. In production these point to the real implementations.
var (
	openSourceFn  = newSource
	newResolverFn = catalog.New
	createSinkFn  = sink.Create
)

// Result summarizes a finished run.
type Result struct {
	RunID  string
	Mode   transformer.Mode
	Copies int

	// Stats is summed over every copy.
	Stats transformer.Stats
	// Skipped counts malformed input records dropped by the reader.
	Skipped int64

	// Fingerprint of the resolved limits; zero when resolution did not finish.
	Fingerprint uint64
	CacheHits   int64
	CacheMisses int64

	Duration time.Duration
}

// Run executes one pipeline end to end:
//
//	CSV reader → (round-robin) → N processors → success / error CSV sinks
//
// Each copy resolves its own policy set through its own resolver, or through
// a handle on one shared connection when catalog.shared is set. Lookups go
// through one LRU cache per run. The first fatal error cancels every copy.
func Run(ctx context.Context, p config.Pipeline, logger *slog.Logger) (res Result, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	res.RunID = uuid.NewString()
	log := logger.With("run_id", res.RunID, "job", p.Job)
	start := time.Now()

	defer func() {
		res.Duration = time.Since(start)
		metrics.RecordStep(p.Job, "run", err, res.Duration)
	}()

	first, err := New(p.Step)
	if err != nil {
		return res, err
	}
	res.Mode = first.Mode()
	missing, err := transformer.ParseMissingPolicy(p.Catalog.MissingColumn)
	if err != nil {
		return res, &transformer.ConfigurationError{Msg: err.Error()}
	}
	copies := p.Runtime.Copies
	if copies < 1 {
		copies = 1
	}
	res.Copies = copies

	log.Info("run: started",
		"mode", res.Mode.String(), "copies", copies,
		"source", sourceName(p.Source), "catalog", p.Catalog.Kind, "shared", p.Catalog.Shared)

	rc, err := openSourceFn(p).Open(ctx)
	if err != nil {
		return res, fmt.Errorf("open source: %w", err)
	}
	defer rc.Close()

	rd, err := csvparser.NewReader(rc, p.Parser.Options, func(line int, err error) {
		log.Warn("reader: skipped malformed record", "line", line, "err", err)
	})
	if err != nil {
		return res, fmt.Errorf("read input: %w", err)
	}
	defer func() { res.Skipped = rd.Skipped() }()

	sinks, err := openSinks(p, res.Mode, rd.Schema())
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := sinks.close(); cerr != nil && err == nil {
			err = &transformer.ProcessingError{Err: cerr}
		}
	}()

	resolvers, cache, err := openResolvers(ctx, p.Catalog, copies)
	if err != nil {
		return res, &transformer.MetadataResolutionError{Err: err}
	}
	defer func() {
		res.CacheHits, res.CacheMisses = cache.Stats()
		metrics.RecordCatalogLookups(p.Job, res.CacheHits, res.CacheMisses)
	}()

	sets := make([]*transformer.PolicySet, copies)
	procs := make([]*transformer.Processor, copies)
	chans := make([]chan *transformer.Row, copies)
	for i := range procs {
		set := first
		if i > 0 {
			if set, err = New(p.Step); err != nil {
				closeAll(resolvers)
				return res, err
			}
		}
		var src transformer.RowSource = rd
		if copies > 1 {
			chans[i] = make(chan *transformer.Row, p.Runtime.ChannelBuffer)
			src = transformer.NewChanSource(chans[i])
		}
		var errSink transformer.ErrorSink
		if sinks.errs != nil {
			errSink = sinks.errs
		}
		procs[i], err = transformer.NewProcessor(transformer.ProcessorConfig{
			Job:      p.Job,
			Step:     res.Mode.String(),
			Policies: set,
			Resolver: resolvers[i],
			Missing:  missing,
			Source:   src,
			Output:   sinks.out,
			Errors:   errSink,
			Logger:   log.With("copy", i),
		})
		if err != nil {
			closeAll(resolvers)
			return res, err
		}
		sets[i] = set
	}

	// A failing copy returns at once so the group cancels its peers and the
	// dealer; its channel is drained in the background until deal closes it.
	var drains sync.WaitGroup
	g, gctx := errgroup.WithContext(ctx)
	if copies > 1 {
		g.Go(func() error { return deal(gctx, rd, chans) })
	}
	for i, proc := range procs {
		i, proc := i, proc
		g.Go(func() error {
			err := proc.Run(gctx)
			if err != nil && chans[i] != nil {
				drains.Add(1)
				go func() {
					defer drains.Done()
					drain(chans[i])
				}()
			}
			return err
		})
	}
	err = g.Wait()
	drains.Wait()

	for _, proc := range procs {
		st := proc.Stats()
		res.Stats.Read += st.Read
		res.Stats.Passed += st.Passed
		res.Stats.Routed += st.Routed
		res.Stats.Truncated += st.Truncated
		res.Stats.Nulls += st.Nulls
	}
	res.Fingerprint = checkFingerprints(log, sets)

	if err != nil {
		log.Error("run: failed", "err", err, "read", res.Stats.Read, "duration", time.Since(start))
		return res, err
	}
	log.Info("run: finished",
		"read", res.Stats.Read,
		"passed", res.Stats.Passed,
		"routed", res.Stats.Routed,
		"truncated", res.Stats.Truncated,
		"skipped", rd.Skipped(),
		"duration", time.Since(start))
	return res, nil
}

// newSource builds the byte source named by source.kind.
func newSource(p config.Pipeline) datasource.Source {
	if p.Source.Kind == "http" {
		h := p.Source.HTTP
		return httpds.New(httpds.Config{
			URL:                h.URL,
			Timeout:            h.Timeout,
			MaxRetries:         h.MaxRetries,
			InsecureSkipVerify: h.InsecureSkipVerify,
			Headers:            h.Headers,
		})
	}
	return file.NewLocal(p.Source.File.Path)
}

func sourceName(s config.Source) string {
	if s.Kind == "http" {
		return s.HTTP.URL
	}
	return s.File.Path
}

// deal hands rows from src to outs in turn and closes every channel when the
// input ends or ctx is done. Order is preserved within each copy.
func deal(ctx context.Context, src transformer.RowSource, outs []chan *transformer.Row) error {
	defer func() {
		for _, c := range outs {
			close(c)
		}
	}()
	for i := 0; ; i++ {
		row, err := src.Pull(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &transformer.ProcessingError{Err: fmt.Errorf("pull: %w", err)}
		}
		select {
		case outs[i%len(outs)] <- row:
		case <-ctx.Done():
			row.Free()
			return ctx.Err()
		}
	}
}

// drain frees rows left in ch after its copy stopped. It returns once deal
// has closed ch.
func drain(ch <-chan *transformer.Row) {
	for r := range ch {
		r.Free()
	}
}

// checkFingerprints returns the fingerprint shared by every resolved set and
// warns when copies resolved different limits.
func checkFingerprints(log *slog.Logger, sets []*transformer.PolicySet) uint64 {
	var fp uint64
	seen := false
	for i, s := range sets {
		if s == nil || !s.IsResolved() {
			continue
		}
		got := s.Fingerprint()
		if !seen {
			fp, seen = got, true
			continue
		}
		if got != fp {
			log.Warn("run: copies resolved different field sizes",
				"copy", i, "fingerprint", fmt.Sprintf("%016x", got), "want", fmt.Sprintf("%016x", fp))
		}
	}
	return fp
}

type runSinks struct {
	out  *sink.CSVWriter
	errs *sink.CSVErrorWriter
}

// openSinks creates the success stream and, for check with error handling,
// the error stream. Headers are written up front so empty runs still produce
// well-formed files.
func openSinks(p config.Pipeline, mode transformer.Mode, schema *transformer.Schema) (*runSinks, error) {
	comma := p.Parser.Options.Rune("comma", ',')

	w, err := createSinkFn(p.Sinks.Output)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	s := &runSinks{out: sink.NewCSVWriter(w, comma)}
	if err := s.out.WriteHeader(schema); err != nil {
		_ = s.close()
		return nil, fmt.Errorf("output: %w", err)
	}

	if mode != transformer.ModeCheck || !p.Step.ErrorHandling {
		return s, nil
	}
	if p.Sinks.Errors == "" {
		_ = s.close()
		return nil, &transformer.ConfigurationError{Msg: "error handling is enabled but sinks.errors is empty"}
	}
	ew, err := createSinkFn(p.Sinks.Errors)
	if err != nil {
		_ = s.close()
		return nil, fmt.Errorf("error stream: %w", err)
	}
	s.errs = sink.NewCSVErrorWriter(ew, comma)
	if err := s.errs.WriteHeader(schema); err != nil {
		_ = s.close()
		return nil, fmt.Errorf("error stream: %w", err)
	}
	return s, nil
}

func (s *runSinks) close() error {
	err := s.out.Close()
	if s.errs != nil {
		if eerr := s.errs.Close(); err == nil {
			err = eerr
		}
	}
	return err
}

// openResolvers opens one resolver per copy, all sharing one cache. With
// c.Shared every resolver is a handle on a single connection.
func openResolvers(ctx context.Context, c config.Catalog, copies int) ([]catalog.Resolver, *catalog.Cached, error) {
	open := func(ctx context.Context) (catalog.Resolver, error) {
		return newResolverFn(ctx, catalog.Config{Kind: c.Kind, DSN: c.DSN, Schema: c.Schema})
	}
	if c.Shared {
		open = catalog.NewShared(open).Acquire
	}

	var cache *catalog.Cached
	out := make([]catalog.Resolver, 0, copies)
	for i := 0; i < copies; i++ {
		r, err := open(ctx)
		if err != nil {
			closeAll(out)
			return nil, nil, fmt.Errorf("open catalog %s: %w", c.Kind, err)
		}
		if cache == nil {
			if cache, err = catalog.NewCached(r, c.CacheSize); err != nil {
				_ = r.Close()
				return nil, nil, err
			}
			out = append(out, cache)
			continue
		}
		out = append(out, cache.Wrap(r))
	}
	return out, cache, nil
}

func closeAll(rs []catalog.Resolver) {
	for _, r := range rs {
		_ = r.Close()
	}
}
