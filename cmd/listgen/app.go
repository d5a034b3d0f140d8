package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jaxron/listgen/internal/config"
	"github.com/jaxron/listgen/pkg/client/logger"
	"github.com/jaxron/listgen/pkg/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app carries the state shared by all commands once flags are parsed.
type app struct {
	cfg    *config.Config
	logger logger.Logger
}

func rootCmd() *cobra.Command {
	var (
		a          app
		configPath string
		logLevel   string
		logJSON    bool
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Generate and fetch word lists",
		Long: `Listgen turns named query definitions into request URLs for a word list
generator and fetches the generated lists.

Parameters are checked against the definition's specification: values a
specification does not allow are dropped and reported as warnings.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if cmd.Flags().Changed("log-json") {
				cfg.Log.JSON = logJSON
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			a.cfg = cfg
			a.logger = cfg.Logger(cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")

	cmd.AddCommand(
		urlCmd(&a),
		fetchCmd(&a),
		specsCmd(&a),
		defsCmd(&a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}

func urlCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "url <definition>",
		Short: "Print the request URL for a definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, defs, err := a.cfg.Registries()
			if err != nil {
				return err
			}

			url, err := query.NewURLBuilder(specs, defs, query.WithLogger(a.logger)).Build(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}

func fetchCmd(a *app) *cobra.Command {
	var (
		noCache bool
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "fetch <definition>",
		Short: "Fetch the word list for a definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			svc, cleanup, err := a.cfg.NewService(a.logger, reg)
			if err != nil {
				return err
			}
			defer cleanup()

			words, err := svc.Lines(cmd.Context(), args[0], !noCache)
			if err != nil {
				return err
			}
			logMetrics(a.logger, reg)

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			return writeLines(out, words)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Fetch live, ignoring cached entries (the fresh list is still cached)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the list to a file instead of stdout")

	return cmd
}

func specsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "specs",
		Short: "List the configured specifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, _, err := a.cfg.Registries()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, id := range specs.IDs() {
				spec, err := specs.Lookup(id)
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "%s %s\n", spec.ID, spec.BaseURL)
				for _, c := range spec.Constraints {
					fmt.Fprintf(out, "  %s: %s\n", c.Name, c.Allowed)
				}
			}
			return nil
		},
	}
}

func defsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "defs",
		Short: "List the configured definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, defs, err := a.cfg.Registries()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, id := range defs.IDs() {
				def, err := defs.Lookup(id)
				if err != nil {
					return err
				}

				assignments := make([]string, 0, len(def.Assignments))
				for _, as := range def.Assignments {
					assignments = append(assignments, as.Name+"="+as.Value)
				}
				fmt.Fprintf(out, "%s (%s) %s\n", def.ID, def.SpecRef, strings.Join(assignments, " "))
			}
			return nil
		},
	}
}

func writeLines(w io.Writer, words []string) error {
	bw := bufio.NewWriter(w)
	for _, word := range words {
		if _, err := bw.WriteString(word + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// logMetrics reports the collected request metrics at debug level.
func logMetrics(l logger.Logger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		l.WithFields(logger.Err(err)).Warn("Failed to gather metrics")
		return
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fields := []logger.Field{logger.String("metric", mf.GetName())}
			for _, label := range m.GetLabel() {
				fields = append(fields, logger.String(label.GetName(), label.GetValue()))
			}
			if c := m.GetCounter(); c != nil {
				fields = append(fields, logger.Any("value", c.GetValue()))
			}
			if h := m.GetHistogram(); h != nil {
				fields = append(fields, logger.Any("count", h.GetSampleCount()), logger.Any("sum", h.GetSampleSum()))
			}
			l.WithFields(fields...).Debug("Metric")
		}
	}
}
