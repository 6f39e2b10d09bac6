package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cogas/jbovlaste-otmize/pkg/config"
	"github.com/cogas/jbovlaste-otmize/pkg/dictionary"
	"github.com/cogas/jbovlaste-otmize/pkg/jbovlaste"
	"github.com/cogas/jbovlaste-otmize/pkg/rafsi"
)

func fetchCmd(g *globals) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "fetch LANG...",
		Short: "Download XML exports from jbovlaste",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			if username != "" {
				cfg.Jbovlaste.Username = username
			}
			if password != "" {
				cfg.Jbovlaste.Password = password
			}
			for _, lang := range args {
				if err := jbovlaste.CheckLang(lang); err != nil {
					return err
				}
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			client, err := jbovlaste.NewClient(cfg.Jbovlaste)
			if err != nil {
				return err
			}
			client.Logger = logger
			if cfg.Jbovlaste.Username != "" {
				if err := client.Login(ctx); err != nil {
					return err
				}
			}
			// One export at a time; jbovlaste is a small volunteer server.
			for _, lang := range args {
				path := filepath.Join(cfg.Paths.XMLDir, jbovlaste.XMLName(lang))
				if err := client.Download(ctx, lang, path); err != nil {
					return fmt.Errorf("fetch %s: %w", lang, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "jbovlaste user name")
	cmd.Flags().StringVar(&password, "password", "", "jbovlaste password")
	return cmd
}

func rafsiCmd(g *globals) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "rafsi OTMJSON...",
		Short: "Build a rafsi table from OTM-JSON dictionaries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := g.setup()
			if err != nil {
				return err
			}
			f, err := rafsi.ParseFormat(format)
			if err != nil {
				return err
			}

			dicts := make([]*dictionary.Dictionary, 0, len(args))
			for _, path := range args {
				d, err := dictionary.LoadFile(path)
				if err != nil {
					return err
				}
				dicts = append(dicts, d)
			}
			rows := rafsi.Collect(dicts...)

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			if err := rafsi.WriteTable(w, rows, f); err != nil {
				return err
			}
			logger.Info("rafsi table written", slog.Int("rows", len(rows)), slog.String("format", string(f)))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "Table format (csv, tsv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func lookupCmd(g *globals) *cobra.Command {
	opts := dictionary.FilterOptions{}
	cmd := &cobra.Command{
		Use:   "lookup FILE QUERY",
		Short: "Search an OTM-JSON dictionary",
		Long: `Lookup prints the words whose content field contains QUERY.
Use --field @entry to match headwords.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := g.setup(); err != nil {
				return err
			}
			d, err := dictionary.LoadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, w := range dictionary.Filter(d.Words, args[1], opts) {
				printWord(out, w)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Field, "field", "glossword", "Content title to match, or @entry")
	cmd.Flags().BoolVar(&opts.Exact, "exact", false, "Require an exact match")
	return cmd
}

func printWord(w io.Writer, word dictionary.Word) {
	fmt.Fprintf(w, "%s\t%d", word.Entry.Form, word.Entry.ID)
	for _, t := range word.Translations {
		fmt.Fprintf(w, "\t[%s] %s", t.Title, strings.Join(t.Forms, "; "))
	}
	fmt.Fprintln(w)
}

func configCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			if g.logLevel != "" {
				cfg.Log.Level = g.logLevel
			}
			return config.Dump(cmd.OutOrStdout(), cfg)
		},
	}
}
