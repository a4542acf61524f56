package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"fieldsize/internal/config"
	"fieldsize/internal/transformer"
)

// Exit codes.
const (
	exitOK         = 0
	exitConfig     = 1 // configuration, schema or metadata errors
	exitViolation  = 2 // check mode without error handling hit an oversized value
	exitProcessing = 3 // sink, input or cancellation failures mid-stream
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	verbose    bool
	logFormat  string

	stdout io.Writer
	stderr io.Writer
}

func (g *globals) logger() *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if g.logFormat == "json" {
		return slog.New(slog.NewJSONHandler(g.stderr, opts))
	}
	return slog.New(slog.NewTextHandler(g.stderr, opts))
}

// load reads the run file and lints it. Warnings are printed; any error
// issue fails the command.
func (g *globals) load() (config.Pipeline, error) {
	p, err := config.Load(g.configPath)
	if err != nil {
		return p, &transformer.ConfigurationError{Msg: err.Error()}
	}
	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(g.stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return p, &transformer.ConfigurationError{Msg: fmt.Sprintf("invalid run file %s", g.configPath)}
	}
	return p, nil
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globals{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "fieldsize",
		Short:         "Check or resize string fields against database column sizes",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "fieldsize.yaml", "run file (JSON or YAML)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logs")
	pf.StringVar(&g.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(
		newRunCmd(g),
		newValidateCmd(g),
		newResolveCmd(g),
		newKindsCmd(g),
	)
	return root
}

// execute runs the CLI and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return exitCode(err)
}

// exitCode maps the error taxonomy to process exit codes.
func exitCode(err error) int {
	var (
		lv *transformer.LengthViolationError
		pe *transformer.ProcessingError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &lv):
		return exitViolation
	case errors.As(err, &pe):
		return exitProcessing
	default:
		return exitConfig
	}
}
