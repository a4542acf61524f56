package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"fieldsize/internal/catalog"
	"fieldsize/internal/step"
)

func newRunCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Stream the input through the configured step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := g.load()
			if err != nil {
				return err
			}
			log := g.logger()

			flush := setupMetrics(p, log)
			defer flush()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, err = step.Run(ctx, p, log)
			return err
		},
	}
}

func newValidateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Lint the run file and exit",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := g.load(); err != nil {
				return err
			}
			fmt.Fprintf(g.stdout, "configuration is valid: %s\n", g.configPath)
			return nil
		},
	}
}

// resolvedField is one line of the resolve report.
type resolvedField struct {
	Field    string `yaml:"field"`
	Table    string `yaml:"table"`
	Column   string `yaml:"column"`
	Trim     string `yaml:"trim"`
	Size     int    `yaml:"size"`
	Resolved bool   `yaml:"resolved"`
}

type resolveReport struct {
	Job         string          `yaml:"job"`
	Mode        string          `yaml:"mode"`
	Fingerprint string          `yaml:"fingerprint"`
	Fields      []resolvedField `yaml:"fields"`
}

func newResolveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Look up the field sizes in the catalog and print them as YAML",
		Long: "Resolves every field policy against the catalog once, exactly as a run\n" +
			"would, and prints the resulting limits. size -1 means unbounded.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := g.load()
			if err != nil {
				return err
			}
			set, err := step.Resolve(cmd.Context(), p, g.logger())
			if err != nil {
				return err
			}

			rep := resolveReport{
				Job:         p.Job,
				Mode:        set.Mode().String(),
				Fingerprint: fmt.Sprintf("%016x", set.Fingerprint()),
			}
			for _, pol := range set.Policies() {
				rep.Fields = append(rep.Fields, resolvedField{
					Field:    pol.FieldName,
					Table:    pol.Table,
					Column:   pol.Column,
					Trim:     pol.Trim.String(),
					Size:     pol.TargetSize,
					Resolved: pol.Resolved,
				})
			}
			enc := yaml.NewEncoder(g.stdout)
			enc.SetIndent(2)
			if err := enc.Encode(rep); err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			return enc.Close()
		},
	}
}

func newKindsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the registered catalog backends and step kinds",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Fprintln(g.stdout, "catalog:")
			for _, k := range catalog.ListKinds() {
				fmt.Fprintf(g.stdout, "  %s\n", k)
			}
			fmt.Fprintln(g.stdout, "step:")
			for _, k := range step.Kinds() {
				fmt.Fprintf(g.stdout, "  %s\n", k)
			}
			return nil
		},
	}
}
