package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"lms/config"
	"lms/console"
	"lms/library"
)

func main() {
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles what every subcommand needs once flags are parsed.
type app struct {
	cfg config.App
	log *slog.Logger
	db  *library.Database
	lib *library.Library
}

func newRootCmd(cfg config.App) *cobra.Command {
	a := &app{cfg: cfg}

	root := &cobra.Command{
		Use:           "lms",
		Short:         "Library catalog and lending tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runConsole(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.cfg.DBPath, "db", cfg.DBPath, "path to the SQLite database (env LMS_DB)")
	root.PersistentFlags().StringVar(&a.cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error (env LMS_LOG_LEVEL)")
	root.PersistentFlags().BoolVar(&a.cfg.Autosave, "autosave", cfg.Autosave, "save after every change made in the console (env LMS_AUTOSAVE)")

	root.AddCommand(
		&cobra.Command{
			Use:   "console",
			Short: "Start the interactive menu (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.runConsole(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "overdue",
			Short: "List overdue loans",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.printOverdue(cmd)
			},
		},
		&cobra.Command{
			Use:   "search [query]",
			Short: "Search books by title, author, genre or ISBN",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.printSearch(cmd, strings.Join(args, ""))
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show catalog, user and loan counts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.printStatus(cmd)
			},
		},
		newExportCmd(a),
		newRestoreCmd(a),
	)
	return root
}

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the library state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return errors.Wrap(err, "create export file")
				}
				defer f.Close()
				w = f
			}
			return library.ExportJSON(w, a.lib.Snapshot())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "file to write instead of stdout")
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace the stored library with a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "open export file")
			}
			defer f.Close()

			s, err := library.ImportJSON(f)
			if err != nil {
				return err
			}
			lib, err := library.Restore(s, library.WithLogger(a.log))
			if err != nil {
				return err
			}
			if err := lib.SaveData(cmd.Context(), a.db); err != nil {
				return err
			}
			a.lib = lib
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d books, %d users, %d records.\n", len(s.Books), len(s.Users), len(s.Records))
			return nil
		},
	}
}

func (a *app) open(ctx context.Context) error {
	a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: a.cfg.Level()}))

	db, err := library.NewDatabase(a.cfg.DBPath)
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	lib, err := library.LoadData(ctx, db, library.WithLogger(a.log))
	if err != nil {
		db.Close()
		return err
	}
	a.db, a.lib = db, lib
	a.log.Debug("library loaded", "db", a.cfg.DBPath)
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *app) runConsole(ctx context.Context) error {
	opts := []console.Option{
		console.WithPrompts(term.IsTerminal(int(os.Stdin.Fd()))),
	}
	if a.cfg.Autosave {
		opts = append(opts, console.WithChangeHook(func() error {
			return a.lib.SaveData(ctx, a.db)
		}))
	}

	if err := console.New(a.lib, os.Stdin, os.Stdout, opts...).Run(); err != nil {
		return err
	}
	if !a.cfg.Autosave {
		return nil
	}
	return a.lib.SaveData(ctx, a.db)
}

func (a *app) printOverdue(cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	loans := a.lib.Overdue()
	if len(loans) == 0 {
		fmt.Fprintln(w, "No overdue books at the moment.")
		return nil
	}
	fmt.Fprintf(w, "%-10s %-25s %-15s %-30s %s\n", "User", "Name", "ISBN", "Title", "Overdue by")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, l := range loans {
		fmt.Fprintf(w, "%-10s %-25s %-15s %-30s %s\n",
			l.UserID,
			truncateString(l.User.Name, 25),
			l.ISBN,
			truncateString(l.Book.Title, 30),
			library.PrettyDuration(l.Late))
	}
	return nil
}

func (a *app) printSearch(cmd *cobra.Command, query string) error {
	w := cmd.OutOrStdout()
	books := a.lib.SearchBooks(query)
	if len(books) == 0 {
		fmt.Fprintf(w, "No books found matching '%s'.\n", query)
		return nil
	}
	fmt.Fprintf(w, "Found %d book(s) matching '%s':\n", len(books), query)
	fmt.Fprintf(w, "%-15s %-30s %-25s %-15s %-10s\n", "ISBN", "Title", "Author", "Genre", "Available")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, b := range books {
		fmt.Fprintln(w, library.PrettyBook(b))
	}
	return nil
}

func (a *app) printStatus(cmd *cobra.Command) error {
	open, err := a.db.OpenLoanCount(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Books:        %d\n", len(a.lib.Books()))
	fmt.Fprintf(w, "Users:        %d\n", len(a.lib.Users()))
	fmt.Fprintf(w, "Open loans:   %d\n", open)
	fmt.Fprintf(w, "Overdue:      %d\n", len(a.lib.Overdue()))
	return nil
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
