// Package main provides the otmize binary, which converts jbovlaste exports
// into OTM-JSON dictionaries.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/cogas/jbovlaste-otmize/pkg/config"
	"github.com/cogas/jbovlaste-otmize/pkg/logging"
)

const (
	Version = "0.1.0"
	appName = "otmize"
)

// BuildTime is set with -ldflags at release time.
var BuildTime = "dev"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Convert jbovlaste exports to OTM-JSON",
		Long: `otmize converts the jbovlaste XML export into OTM-JSON dictionaries.

It can:
- download exports from jbovlaste
- build cleaned-up dictionaries with relations discovered in notes
- build a rafsi table and look words up in generated files`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		buildCmd(g),
		fetchCmd(g),
		rafsiCmd(g),
		lookupCmd(g),
		configCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}

// setup loads the configuration and installs the logger.
func (g *globals) setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, logging.New(cfg.Log), nil
}
