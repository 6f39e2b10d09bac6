package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cogas/jbovlaste-otmize/pkg/config"
	"github.com/cogas/jbovlaste-otmize/pkg/db"
	"github.com/cogas/jbovlaste-otmize/pkg/jbovlaste"
	"github.com/cogas/jbovlaste-otmize/pkg/relation"
)

type buildOptions struct {
	xmlDir        string
	jsonDir       string
	outputDir     string
	zip           bool
	fetch         bool
	noDollar      bool
	addRelations  bool
	keepGloss     bool
	test          bool
	dbPath        string
	threshold     int
	chunkSize     int
	workers       int
	parallelLangs int
}

func buildCmd(g *globals) *cobra.Command {
	o := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build LANG...",
		Short: "Build OTM-JSON dictionaries from jbovlaste exports",
		Long: `Build converts the exports of the given languages (en, ja, jbo, en-simple)
into OTM-JSON files. Exports are read from the JSON cache or the XML directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			o.apply(cmd, cfg)
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runBuild(ctx, cmd.ErrOrStderr(), cfg, o, args, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.xmlDir, "xml-dir", "", "Directory holding jbo-{lang}-xml.xml exports")
	f.StringVar(&o.jsonDir, "json-dir", "", "Directory of the decoded export cache")
	f.StringVarP(&o.outputDir, "output", "o", "", "Output directory for OTM-JSON files")
	f.BoolVar(&o.zip, "zip", false, "Package the outputs into a zip archive")
	f.BoolVar(&o.fetch, "fetch", false, "Download exports that are missing locally")
	f.BoolVar(&o.noDollar, "nodollar", false, "Strip $ from definitions")
	f.BoolVar(&o.addRelations, "addrelations", false, "Discover relations from notes")
	f.BoolVar(&o.keepGloss, "keepgloss", false, "Keep glosswords as a content instead of a translation")
	f.BoolVar(&o.test, "test", false, "Build without writing any file")
	f.StringVar(&o.dbPath, "db", "", "Also index the result into this SQLite database")
	f.IntVar(&o.threshold, "threshold", 0, "Word count from which relations are resolved in parallel")
	f.IntVar(&o.chunkSize, "chunk-size", 0, "Words per parallel chunk")
	f.IntVar(&o.workers, "workers", 0, "Relation workers (0 = one per CPU)")
	f.IntVar(&o.parallelLangs, "parallel-langs", 1, "Languages built at the same time")
	return cmd
}

// apply fills unset paths from cfg and pushes changed flags into cfg.
func (o *buildOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if o.xmlDir == "" {
		o.xmlDir = cfg.Paths.XMLDir
	}
	if o.jsonDir == "" {
		o.jsonDir = cfg.Paths.JSONDir
	}
	if o.outputDir == "" {
		o.outputDir = cfg.Paths.OutputDir
	}
	f := cmd.Flags()
	if f.Changed("threshold") {
		cfg.Relations.Threshold = o.threshold
	}
	if f.Changed("chunk-size") {
		cfg.Relations.ChunkSize = o.chunkSize
	}
	if f.Changed("workers") {
		cfg.Relations.Workers = o.workers
	}
}

func runBuild(ctx context.Context, stderr io.Writer, cfg *config.Config, o *buildOptions, langs []string, logger *slog.Logger) error {
	for _, lang := range langs {
		if err := jbovlaste.CheckLang(lang); err != nil {
			return err
		}
	}

	var conn *sql.DB
	if o.dbPath != "" && !o.test {
		c, err := db.Open(o.dbPath)
		if err != nil {
			return err
		}
		defer c.Close()
		conn = c
	}

	store := &jbovlaste.RawStore{XMLDir: o.xmlDir, JSONDir: o.jsonDir, Logger: logger}
	var client *jbovlaste.Client
	if o.fetch {
		c, err := jbovlaste.NewClient(cfg.Jbovlaste)
		if err != nil {
			return err
		}
		c.Logger = logger
		client = c
	}
	progress := &progressPrinter{w: stderr}
	outputs := make([]string, len(langs))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(o.parallelLangs, 1))
	for i, lang := range langs {
		eg.Go(func() error {
			start := time.Now()
			log := logger.With(slog.String("lang", lang))

			if client != nil {
				if _, err := os.Stat(store.JSONPath(lang)); err != nil {
					if _, err := client.EnsureExport(ctx, lang, o.xmlDir); err != nil {
						return fmt.Errorf("%s: %w", lang, err)
					}
				}
			}
			valsis, err := store.Load(lang)
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%s: %w (run `otmize fetch %s` first)", lang, err, lang)
			} else if err != nil {
				return fmt.Errorf("%s: %w", lang, err)
			}
			d := jbovlaste.NewDictionary(valsis, lang, time.Now())

			r := newRelationizer(cfg.Relations, logger)
			r.OnProgress = progress.report
			d, err = jbovlaste.Customize(ctx, d, jbovlaste.Options{
				NoDollar:     o.noDollar,
				KeepGloss:    o.keepGloss,
				AddRelations: o.addRelations,
				Relationizer: r,
			})
			if err != nil {
				return err
			}
			progress.finish()

			if o.test {
				log.Info("test build, dictionary not saved", slog.Int("words", d.Len()))
				return nil
			}
			path := filepath.Join(o.outputDir, jbovlaste.OutputName(lang))
			if err := d.SaveFile(path); err != nil {
				return err
			}
			outputs[i] = path

			if conn != nil {
				n, err := db.SaveDictionary(ctx, conn, d, 500)
				if err != nil {
					return err
				}
				log.Info("indexed dictionary", slog.String("db", o.dbPath), slog.Int("words", n))
			}
			log.Info("written dictionary",
				slog.String("path", path),
				slog.Int("words", d.Len()),
				slog.Duration("elapsed", time.Since(start)))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	if o.test {
		fmt.Fprintln(stderr, "This is a test. Dictionary data is not saved.")
		return nil
	}
	if o.zip {
		archive := filepath.Join(cfg.Paths.ZipDir, jbovlaste.ZipName(langs))
		if err := jbovlaste.Zip(archive, outputs); err != nil {
			return err
		}
		logger.Info("zipped", slog.String("path", archive))
	}
	fmt.Fprintln(stderr, "Success!")
	return nil
}

func newRelationizer(cfg config.RelationsConfig, logger *slog.Logger) *relation.Relationizer {
	r := relation.NewRelationizer()
	if cfg.Threshold > 0 {
		r.Threshold = cfg.Threshold
	}
	if cfg.ChunkSize > 0 {
		r.ChunkSize = cfg.ChunkSize
	}
	if cfg.Workers > 0 {
		r.Workers = cfg.Workers
	}
	r.ChunkTimeout = cfg.ChunkTimeout
	r.Logger = logger
	r.OnFault = func(f relation.WordFault) {
		logger.Warn("relation fault", slog.Any("error", f))
	}
	return r
}

// progressPrinter renders relation progress on one terminal line.
type progressPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	active bool
}

func (p *progressPrinter) report(pr relation.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\r%d/%d words done, using %d workers.", pr.Done, pr.Total, pr.Workers)
	p.active = true
}

func (p *progressPrinter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active {
		fmt.Fprintln(p.w)
		p.active = false
	}
}
