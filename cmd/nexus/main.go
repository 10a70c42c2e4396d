// Command nexus aggregates engineering feeds into one timeline with
// semantic search and on-demand translation.
//
// Usage:
//
//	nexus                   Interactive reader (TUI)
//	nexus list              Print a view (--view, --source, --locale)
//	nexus search <query>    Rank the corpus against a query
//	nexus sources           Per-source fetch report
//	nexus favorite <id>     Toggle a favorite
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/abelbrown/nexus/internal/coord"
	"github.com/abelbrown/nexus/internal/logging"
	"github.com/abelbrown/nexus/internal/ui"
)

var (
	configPath string
	verbose    bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "nexus:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nexus",
		Short:         "Feed reader with semantic search and translation",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTUI,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.nexus/config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newListCmd(),
		newSearchCmd(),
		newSourcesCmd(),
		newFavoriteCmd(),
	)
	return root
}

func logLevel() log.Level {
	if verbose {
		return log.DebugLevel
	}
	return log.InfoLevel
}

// runTUI starts the interactive reader. Logs go to the data directory so
// they don't corrupt the screen.
func runTUI(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var program *tea.Program
	e, err := setup(func(cfgDataDir string) error {
		return logging.Init(cfgDataDir, logLevel())
	}, func() {
		// Called from Update too; Send would block the event loop.
		if program != nil {
			go program.Send(ui.DisplayChanged{})
		}
	})
	if err != nil {
		return err
	}
	defer e.Close()

	app := ui.NewApp(ctx, e.session)
	program = tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	bgCtx, cancel := context.WithCancel(ctx)
	coordinator := coord.NewCoordinator(e.session, e.cfg.RefreshInterval)
	coordinator.Start(bgCtx)

	_, err = program.Run()

	cancel()
	coordinator.Wait()

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("run program: %w", err)
	}
	return nil
}
