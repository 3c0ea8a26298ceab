package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/bafoeg-assistant/internal/bootstrap"
	"github.com/kirillkom/bafoeg-assistant/internal/config"
	"github.com/kirillkom/bafoeg-assistant/internal/infrastructure/indexing"
)

func newRootCmd(cfg config.Config, logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "bafoeg-indexer",
		Short:         "Maintain the BAföG knowledge base and its keyword index",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&cfg.KnowledgeBaseDir, "kb-dir", cfg.KnowledgeBaseDir, "knowledge base directory")

	// cfg is read when a command runs so the --kb-dir flag applies.
	open := func() (*bootstrap.IndexerApp, error) {
		return bootstrap.NewIndexer(cfg, logger)
	}

	root.AddCommand(
		newURLMappingCmd(open),
		newBuildCmd(open, &cfg),
		newWatchCmd(open, &cfg, logger),
		newListCmd(open),
		newScrapeCmd(open, logger),
	)
	return root
}

type openIndexer func() (*bootstrap.IndexerApp, error)

func newURLMappingCmd(open openIndexer) *cobra.Command {
	var merge bool
	cmd := &cobra.Command{
		Use:   "url-mapping [sheet]",
		Short: "Generate url_mapping.json from URLs.csv or URLs.xlsx",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open()
			if err != nil {
				return err
			}
			defer app.Close()

			sheet := filepath.Join(app.Storage.BasePath(), "URLs.csv")
			if len(args) == 1 {
				sheet = args[0]
			}
			mapping, err := indexing.LoadURLSheet(sheet)
			if err != nil {
				return err
			}
			if merge {
				existing, err := indexing.ReadURLMapping(cmd.Context(), app.Storage)
				if err != nil {
					return err
				}
				existing.Merge(mapping)
				mapping = existing
			}
			if err := indexing.WriteURLMapping(cmd.Context(), app.Storage, mapping); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Generated %s\n", app.Storage.Path(indexing.MappingKey))
			fmt.Fprintf(out, "  Mapped %d files to URLs\n", len(mapping))
			files := mapping.Files()
			for _, file := range files[:min(3, len(files))] {
				fmt.Fprintf(out, "  %s -> %s\n", file, mapping[file])
			}
			if len(files) > 3 {
				fmt.Fprintf(out, "  ... and %d more\n", len(files)-3)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&merge, "merge", false, "merge into the existing mapping instead of replacing it")
	return cmd
}

func newBuildCmd(open openIndexer, cfg *config.Config) *cobra.Command {
	var sink string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the keyword index from url_mapping.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := open()
			if err != nil {
				return err
			}
			defer app.Close()
			return rebuild(cmd.Context(), cmd.OutOrStdout(), app, sinkLocation(sink, cfg))
		},
	}
	cmd.Flags().StringVar(&sink, "sink", "", "index location: file path or postgres:// DSN (default KNOWLEDGE_INDEX)")
	return cmd
}

func newWatchCmd(open openIndexer, cfg *config.Config, logger *slog.Logger) *cobra.Command {
	var (
		sink     string
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the index whenever knowledge base files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := open()
			if err != nil {
				return err
			}
			defer app.Close()

			location := sinkLocation(sink, cfg)
			watcher, err := indexing.NewWatcher(indexing.WatcherOptions{
				Ignore:   []string{filepath.Base(location)},
				Debounce: debounce,
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			logger.Info("knowledge_base_watch_started", "dir", app.Storage.BasePath(), "sink", location)
			return watcher.Run(cmd.Context(), app.Storage.BasePath(), func(ctx context.Context) error {
				return rebuild(ctx, cmd.OutOrStdout(), app, location)
			})
		},
	}
	cmd.Flags().StringVar(&sink, "sink", "", "index location: file path or postgres:// DSN (default KNOWLEDGE_INDEX)")
	cmd.Flags().DurationVar(&debounce, "debounce", indexing.DefaultDebounce, "quiet period before a rebuild")
	return cmd
}

func newListCmd(open openIndexer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the text files of the knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := open()
			if err != nil {
				return err
			}
			defer app.Close()

			files, err := app.Storage.List(cmd.Context(), ".txt")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintln(out, "No .txt files found in knowledge base.")
				return nil
			}
			fmt.Fprintf(out, "Knowledge base files (%d):\n", len(files))
			for _, f := range files {
				fmt.Fprintf(out, "  - %s (%d bytes)\n", f.Key, f.Size)
			}
			return nil
		},
	}
}

func newScrapeCmd(open openIndexer, logger *slog.Logger) *cobra.Command {
	var (
		delay     time.Duration
		userAgent string
	)
	cmd := &cobra.Command{
		Use:   "scrape [url...]",
		Short: "Save the visible text of web pages into the knowledge base",
		Long:  "Scrape the given URLs, or URLs read from stdin one per line until an empty line.",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls := args
			if len(urls) == 0 {
				urls = readURLs(cmd.InOrStdin())
			}
			if len(urls) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No URLs provided.")
				return nil
			}

			app, err := open()
			if err != nil {
				return err
			}
			defer app.Close()

			scraper := indexing.NewScraper(app.Storage, indexing.ScraperOptions{
				UserAgent: userAgent,
				Delay:     delay,
				Logger:    logger,
			})
			report, err := scraper.ScrapeAll(cmd.Context(), urls)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, file := range report.Saved.Files() {
				fmt.Fprintf(out, "✓ %s -> %s\n", report.Saved[file], file)
			}
			for _, failed := range report.Failed {
				fmt.Fprintf(out, "✗ %s\n", failed)
			}
			if len(report.Saved) > 0 {
				fmt.Fprintln(out, "Remember to rebuild the index: bafoeg-indexer build")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&delay, "delay", indexing.DefaultScrapeDelay, "pause before each request")
	cmd.Flags().StringVar(&userAgent, "user-agent", indexing.DefaultUserAgent, "User-Agent header")
	return cmd
}

func rebuild(ctx context.Context, out io.Writer, app *bootstrap.IndexerApp, location string) error {
	rebuilder, release, err := app.Rebuilder(ctx, location)
	if err != nil {
		return err
	}
	defer release()

	report, err := rebuilder.Rebuild(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Indexed %d documents with %d keywords into %s\n", len(report.Documents), report.TotalKeywords(), location)
	if len(report.Skipped) > 0 {
		fmt.Fprintf(out, "  Skipped: %s\n", strings.Join(report.Skipped, ", "))
	}
	return nil
}

func sinkLocation(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.KnowledgeIndex
}

func readURLs(in io.Reader) []string {
	var urls []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		urls = append(urls, line)
	}
	return urls
}
