package transformer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"fieldsize/internal/catalog"
	"fieldsize/internal/metrics"
)

// State is the lifecycle position of a Processor.
type State uint8

const (
	StateUninitialized State = iota
	StateMetadataResolved
	StateStreaming
	StateDrained
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateMetadataResolved:
		return "metadata_resolved"
	case StateStreaming:
		return "streaming"
	case StateDrained:
		return "drained"
	case StateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// ProcessorConfig carries the collaborators of one step copy.
type ProcessorConfig struct {
	// Job and Step label logs and metrics.
	Job  string
	Step string

	Policies *PolicySet
	Resolver catalog.Resolver
	Missing  MissingPolicy

	Source RowSource
	Output RowSink
	// Errors is the error stream. Nil means error handling is disabled and a
	// check-mode violation fails the run.
	Errors ErrorSink

	// Logger is extended with the step name. Callers attach the job and
	// run attributes themselves.
	Logger *slog.Logger
}

// Stats counts rows by outcome.
type Stats struct {
	Read      int64
	Passed    int64 // delivered to the success sink
	Routed    int64 // check mode: delivered to the error sink
	Truncated int64 // resize mode: rows with at least one field cut
	Nulls     int64 // null field values skipped
}

// Processor drives the per-row loop of one step copy:
//
//	Uninitialized → MetadataResolved → Streaming → Drained
//
// Any fatal error moves it to Failed and closes the resolver. A Processor is
// used by a single goroutine.
type Processor struct {
	cfg   ProcessorConfig
	log   *slog.Logger
	state State
	err   error

	policies []FieldPolicy
	idx      []int // schema position of each policy, set on the first row

	stats Stats

	closeOnce sync.Once
	closeErr  error
}

// NewProcessor validates cfg and returns a Processor in StateUninitialized.
func NewProcessor(cfg ProcessorConfig) (*Processor, error) {
	switch {
	case cfg.Policies == nil:
		return nil, &ConfigurationError{Msg: "no field policies configured"}
	case cfg.Policies.IsResolved():
		return nil, &ConfigurationError{Msg: "policy set is already resolved"}
	case cfg.Resolver == nil:
		return nil, &ConfigurationError{Msg: "no metadata resolver configured"}
	case cfg.Source == nil:
		return nil, &ConfigurationError{Msg: "no input row source configured"}
	case cfg.Output == nil:
		return nil, &ConfigurationError{Msg: "no output row sink configured"}
	}
	if cfg.Step == "" {
		cfg.Step = cfg.Policies.Mode().String()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		cfg: cfg,
		log: logger.With("step", cfg.Step),
	}, nil
}

// State returns the current lifecycle state.
func (p *Processor) State() State { return p.state }

// Err returns the fatal error that moved the processor to StateFailed.
func (p *Processor) Err() error { return p.err }

// Stats returns a snapshot of the row counters.
func (p *Processor) Stats() Stats { return p.stats }

// Init resolves every policy's target size. It runs once; later calls return
// the outcome of the first.
func (p *Processor) Init(ctx context.Context) error {
	switch p.state {
	case StateUninitialized:
	case StateFailed:
		return p.err
	default:
		return nil
	}

	start := time.Now()
	set := p.cfg.Policies
	sizes, err := catalog.ResolveSizes(ctx, p.cfg.Resolver, set.Refs())
	if err == nil {
		err = set.Resolve(sizes, p.cfg.Missing, p.log)
	}
	metrics.RecordStep(p.cfg.Job, "resolve", err, time.Since(start))
	if err != nil {
		return p.fail(asMetadataError(err))
	}

	p.policies = set.Policies()
	p.state = StateMetadataResolved
	p.log.Info("resolve: field sizes resolved",
		"fields", len(p.policies),
		"fingerprint", fmt.Sprintf("%016x", set.Fingerprint()),
		"duration", time.Since(start))
	for _, pol := range p.policies {
		p.log.Debug("resolve: policy",
			"field", pol.FieldName, "table", pol.Table, "column", pol.Column,
			"trim", pol.Trim.String(), "size", pol.TargetSize, "resolved", pol.Resolved)
	}
	return nil
}

// ProcessRow pulls one row, applies every policy and dispatches it. It
// returns more=false once the source is exhausted. Init runs first if it has
// not yet.
func (p *Processor) ProcessRow(ctx context.Context) (more bool, err error) {
	switch p.state {
	case StateUninitialized:
		if err := p.Init(ctx); err != nil {
			return false, err
		}
	case StateDrained:
		return false, nil
	case StateFailed:
		return false, p.err
	}

	if err := ctx.Err(); err != nil {
		return false, p.fail(&ProcessingError{Err: err})
	}

	row, err := p.cfg.Source.Pull(ctx)
	if errors.Is(err, io.EOF) {
		p.state = StateDrained
		return false, nil
	}
	if err != nil {
		return false, p.fail(&ProcessingError{Err: fmt.Errorf("pull: %w", err)})
	}
	if row == nil {
		return false, p.fail(&ProcessingError{Err: errors.New("pull: source returned a nil row")})
	}
	p.stats.Read++

	if p.state == StateMetadataResolved {
		if err := p.bindSchema(row.Schema); err != nil {
			row.Free()
			return false, p.fail(err)
		}
		p.state = StateStreaming
	}

	line := row.Line
	v, truncated, err := p.apply(row)
	if err != nil {
		row.Free()
		return false, p.fail(&ProcessingError{Line: line, Err: err})
	}

	if !v.Empty() {
		if p.cfg.Errors == nil {
			row.Free()
			return false, p.fail(&LengthViolationError{Line: line, Violation: v})
		}
		p.log.Info("check: row routed to error stream",
			"line", line, "errors", v.Count, "fields", v.FieldList(), "description", v.Description)
		if err := p.cfg.Errors.PutError(ctx, row, v.Count, v.Description, v.FieldList(), ""); err != nil {
			return false, p.fail(&ProcessingError{Line: line, Err: fmt.Errorf("error sink: %w", err)})
		}
		p.stats.Routed++
		return true, nil
	}

	if err := p.cfg.Output.PutRow(ctx, row); err != nil {
		return false, p.fail(&ProcessingError{Line: line, Err: fmt.Errorf("output sink: %w", err)})
	}
	p.stats.Passed++
	if truncated {
		p.stats.Truncated++
	}
	return true, nil
}

// Run resolves metadata if needed, then processes rows until the source is
// drained or a fatal error occurs. The resolver is closed before Run returns.
func (p *Processor) Run(ctx context.Context) error {
	defer func() {
		if err := p.Close(); err != nil {
			p.log.Warn("processor: closing resolver failed", "err", err)
		}
	}()

	if err := p.Init(ctx); err != nil {
		return err
	}

	start := time.Now()
	var err error
	for {
		var more bool
		more, err = p.ProcessRow(ctx)
		if err != nil || !more {
			break
		}
	}
	dur := time.Since(start)

	metrics.RecordRow(p.cfg.Job, "read", p.stats.Read)
	metrics.RecordRow(p.cfg.Job, "passed", p.stats.Passed)
	metrics.RecordRow(p.cfg.Job, "routed", p.stats.Routed)
	metrics.RecordRow(p.cfg.Job, "truncated", p.stats.Truncated)
	metrics.RecordStep(p.cfg.Job, "stream", err, dur)

	if err != nil {
		p.log.Error("stream: failed",
			"read", p.stats.Read, "passed", p.stats.Passed, "routed", p.stats.Routed, "err", err)
		return err
	}
	p.log.Info("stream: drained",
		"read", p.stats.Read,
		"passed", p.stats.Passed,
		"routed", p.stats.Routed,
		"truncated", p.stats.Truncated,
		"nulls", p.stats.Nulls,
		"duration", dur)
	return nil
}

// Close releases the resolver. It is safe to call more than once.
func (p *Processor) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.cfg.Resolver.Close()
	})
	return p.closeErr
}

// bindSchema maps every policy to its position in schema. It runs once, on
// the first row.
func (p *Processor) bindSchema(schema *Schema) error {
	if schema == nil {
		return &ProcessingError{Err: errors.New("first row carries no schema")}
	}
	p.idx = make([]int, len(p.policies))
	for i, pol := range p.policies {
		ix := schema.IndexOf(pol.FieldName)
		if ix < 0 {
			return &SchemaMismatchError{Field: pol.FieldName}
		}
		p.idx[i] = ix
	}
	return nil
}

// apply runs every policy on row in policy order. Resize writes the new
// values back into row; check collects the violation.
func (p *Processor) apply(row *Row) (v Violation, truncated bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic applying field policies: %v", r)
		}
	}()

	mode := p.cfg.Policies.Mode()
	for i, pol := range p.policies {
		ix := p.idx[i]
		o := ApplyPolicy(mode, pol, row.V[ix])
		if o.Null {
			p.stats.Nulls++
			continue
		}
		if mode == ModeResize {
			row.V[ix] = o.Value
			truncated = truncated || o.Truncated
			continue
		}
		if o.Violated {
			v.Add(pol, o)
		}
	}
	return v, truncated, nil
}

// fail records err, moves to StateFailed and closes the resolver.
func (p *Processor) fail(err error) error {
	p.state = StateFailed
	p.err = err
	if cerr := p.Close(); cerr != nil {
		p.log.Warn("processor: closing resolver failed", "err", cerr)
	}
	return err
}

// asMetadataError normalizes a resolution failure to MetadataResolutionError.
func asMetadataError(err error) error {
	var mre *MetadataResolutionError
	if errors.As(err, &mre) {
		return mre
	}
	var le *catalog.LookupError
	if errors.As(err, &le) {
		return &MetadataResolutionError{Table: le.Ref.Table, Column: le.Ref.Column, Err: le.Err}
	}
	return &MetadataResolutionError{Err: err}
}
