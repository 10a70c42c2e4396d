package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/abelbrown/nexus/internal/logging"
	"github.com/abelbrown/nexus/internal/model"
	"github.com/abelbrown/nexus/internal/store"
)

// translateWait bounds how long list waits for a translation pass.
const translateWait = 2 * time.Minute

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// cliSetup wires the pipeline with logs on stderr.
func cliSetup() (*env, error) {
	return setup(func(string) error {
		logging.SetOutput(os.Stderr, logLevel())
		return nil
	}, nil)
}

func newListCmd() *cobra.Command {
	var (
		view   string
		source string
		locale string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the articles in a view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := model.ParseView(view)
			if err != nil {
				return err
			}
			if v == model.ViewSource && source == "" {
				return errors.New("--source is required with --view source")
			}

			e, err := cliSetup()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			s := e.session
			s.Load(ctx)
			s.SelectView(v, source)

			if locale != "" && locale != s.Locale() {
				// One-off: put the saved preference back afterwards.
				prev := s.Locale()
				s.SetLocale(locale)
				defer s.SetLocale(prev)
			}
			if err := waitTranslation(ctx, s.WaitTranslation); err != nil {
				return err
			}

			printTitle(s.Title(), len(s.Display()))
			if v == model.ViewFavorites {
				fmt.Println(dimStyle.Render(favoritesSaved(e.store)))
			}
			for _, it := range s.Display() {
				printItem(it, s.IsFavorite(it.ID), false)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&view, "view", string(model.ViewToday), "today, all, favorites or source")
	cmd.Flags().StringVar(&source, "source", "", "source id for --view source")
	cmd.Flags().StringVar(&locale, "locale", "", "display language, e.g. zh")
	return cmd
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Rank all articles against a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			e, err := cliSetup()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			s := e.session
			s.Load(ctx)

			start := time.Now()
			s.Search(ctx, query)
			elapsed := time.Since(start)
			if err := waitTranslation(ctx, s.WaitTranslation); err != nil {
				return err
			}
			results := s.Display()

			printTitle(s.Title(), len(results))
			fmt.Println(dimStyle.Render(fmt.Sprintf("ranked in %s", elapsed.Round(time.Millisecond))))
			for _, it := range results {
				printItem(it, s.IsFavorite(it.ID), true)
			}
			return nil
		},
	}
}

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Fetch every source and report per-source results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := cliSetup()
			if err != nil {
				return err
			}
			defer e.Close()

			e.session.Load(cmd.Context())

			fmt.Println(headerStyle.Render(fmt.Sprintf("%-4s %-22s %6s %9s  %s", "ID", "SOURCE", "ITEMS", "TIME", "STATUS")))
			failed := 0
			for _, st := range e.session.Report() {
				status := "ok"
				if st.Err != nil {
					status = errStyle.Render(st.Err.Error())
					failed++
				}
				fmt.Printf("%-4s %-22s %6d %9s  %s\n", st.ID, truncate(st.Name, 22), st.Items, st.Duration.Round(time.Millisecond), status)
			}
			fmt.Println(dimStyle.Render(fmt.Sprintf("%d sources, %d failed", len(e.session.Sources()), failed)))
			return nil
		},
	}
}

func newFavoriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <id>",
		Short: "Toggle an article's favorite flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := cliSetup()
			if err != nil {
				return err
			}
			defer e.Close()

			favs, err := e.store.Favorites()
			if err != nil {
				logging.Warn("favorites unreadable, starting fresh", "error", err)
			}
			on := favs.Toggle(args[0])
			if err := e.store.SaveFavorites(favs); err != nil {
				return fmt.Errorf("save favorites: %w", err)
			}
			if on {
				fmt.Println("★ added", args[0])
			} else {
				fmt.Println("removed", args[0])
			}
			return nil
		},
	}
}

// favoritesSaved describes when the favorite set was last written.
func favoritesSaved(st *store.Store) string {
	at, err := st.UpdatedAt(store.KeyFavorites)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "no favorites saved yet"
	case err != nil:
		logging.Warn("failed to read favorites timestamp", "error", err)
		return "favorites saved: unknown"
	}
	return "favorites saved " + at.Local().Format("Jan 02 15:04")
}

func waitTranslation(ctx context.Context, wait func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, translateWait)
	defer cancel()
	if err := wait(ctx); err != nil {
		return fmt.Errorf("waiting for translation: %w", err)
	}
	return nil
}

func printTitle(title string, n int) {
	fmt.Println(headerStyle.Render(fmt.Sprintf("%s (%d)", title, n)))
}

func printItem(it model.RankedItem, favorite, score bool) {
	star := " "
	if favorite {
		star = "★"
	}
	meta := it.Time().Local().Format("Jan 02 15:04")
	if score {
		meta = fmt.Sprintf("%.3f", it.Score)
	}
	fmt.Printf("%s %-12s %-18s %s\n", star, meta, truncate(it.SourceName, 18), it.Title)
	fmt.Println(dimStyle.Render("  " + it.Link + "  " + it.ID))
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
