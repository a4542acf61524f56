package step

import (
	"context"
	"io"
	"log/slog"

	"fieldsize/internal/catalog"
	"fieldsize/internal/config"
	"fieldsize/internal/transformer"
)

// Resolve opens the catalog, resolves the step's field sizes once and returns
// the frozen policy set. No input is read.
func Resolve(ctx context.Context, p config.Pipeline, logger *slog.Logger) (*transformer.PolicySet, error) {
	if logger == nil {
		logger = slog.Default()
	}
	set, err := New(p.Step)
	if err != nil {
		return nil, err
	}
	missing, err := transformer.ParseMissingPolicy(p.Catalog.MissingColumn)
	if err != nil {
		return nil, &transformer.ConfigurationError{Msg: err.Error()}
	}

	r, err := newResolverFn(ctx, catalog.Config{Kind: p.Catalog.Kind, DSN: p.Catalog.DSN, Schema: p.Catalog.Schema})
	if err != nil {
		return nil, &transformer.MetadataResolutionError{Err: err}
	}

	proc, err := transformer.NewProcessor(transformer.ProcessorConfig{
		Job:      p.Job,
		Policies: set,
		Resolver: r,
		Missing:  missing,
		Source: transformer.SourceFunc(func(context.Context) (*transformer.Row, error) {
			return nil, io.EOF
		}),
		Output: transformer.SinkFunc(func(_ context.Context, row *transformer.Row) error {
			row.Free()
			return nil
		}),
		Logger: logger.With("job", p.Job),
	})
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	defer proc.Close()

	if err := proc.Init(ctx); err != nil {
		return nil, err
	}
	return set, nil
}
