package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/strata/internal/build"
	"github.com/conneroisu/strata/internal/logging"
	"github.com/conneroisu/strata/internal/scanner"
	"github.com/conneroisu/strata/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Build the site and rebuild it on every change",
	Long: `Build the site once, then watch the source directory and run a new build
generation for every batch of changes. Changes arriving within the debounce
window are batched. Excluded files and the output directory are ignored.
A failed build is reported and the watcher keeps running.

Examples:
  strata watch
  strata watch --debounce 1s`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("output", "o", "public", "output directory, relative to the source directory")
	watchCmd.Flags().Bool("clean", false, "remove the output directory before every build")
	watchCmd.Flags().String("base-url", "", "absolute site URL; enables sitemap.xml")
	watchCmd.Flags().Duration("debounce", 300*time.Millisecond, "wait this long for more changes before rebuilding")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	p, cfg, logger, err := newPipeline(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := build.NewMetrics()
	p.AddCallback(metrics.Record)
	p.AddCallback(func(report *build.Report, err error) {
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), describeError(err))
			return
		}
		printReport(cmd, report)
	})

	// The first build may fail; the watcher still starts so the error
	// can be fixed in place.
	_, _ = p.Run(ctx)

	fw, err := newSiteWatcher(p.Options(), cfg.Watch.Debounce, logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		logger.Info(ctx, "Change detected", "files", len(events), "first", events[0].Path)
		// Failures are reported by the build callback.
		_, _ = p.Run(ctx)

		return nil
	})

	fw.Start(ctx)
	logger.Info(ctx, "Watching for changes", "root", p.Options().Root)

	<-ctx.Done()

	snap := metrics.Snapshot()
	logger.Info(context.Background(), "Watch stopped",
		"builds", snap.TotalBuilds,
		"failed", snap.FailedBuilds,
		"average", snap.AverageDuration.Round(time.Millisecond))

	return nil
}

// newSiteWatcher watches the site root, skipping excluded paths and the
// output directory.
func newSiteWatcher(opts build.Options, debounce time.Duration, logger logging.Logger) (*watcher.FileWatcher, error) {
	sc, err := scanner.New(opts.Root, opts.Exclude)
	if err != nil {
		return nil, err
	}

	fw, err := watcher.NewFileWatcher(debounce, logger)
	if err != nil {
		return nil, err
	}

	output := opts.Output
	if !filepath.IsAbs(output) {
		output = filepath.Join(sc.Root(), output)
	}
	fw.AddFilter(watcher.DirFilter(output))
	fw.AddFilter(watcher.ExcludeFilter(sc.Root(), sc.Excluded))

	if err := fw.AddRecursive(sc.Root()); err != nil {
		_ = fw.Stop()
		return nil, err
	}

	return fw, nil
}
