package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lms/config"
	"lms/library"
)

func main() {
	cfg := config.Load()
	cmd := &cobra.Command{
		Use:          "import_books <manifest.csv>",
		Short:        "Add books listed in a CSV manifest (title,author,genre,isbn) to the library database",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg.DBPath, args[0])
		},
	}
	cmd.Flags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the SQLite database (env LMS_DB)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, dbPath, manifestPath string) error {
	db, err := library.NewDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	lib, err := library.LoadData(ctx, db)
	if err != nil {
		return err
	}

	f, err := os.Open(manifestPath)
	if err != nil {
		return fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	rows, err := library.ReadManifest(f)
	if err != nil {
		return err
	}
	fmt.Printf("Importing %d books from %s...\n", len(rows), manifestPath)

	successCount := 0
	errorCount := 0
	for _, b := range rows {
		fmt.Printf("Importing: %s by %s... ", b.Title, b.Author)
		res := lib.AddBook(b.Title, b.Author, b.Genre, b.ISBN)
		if !res.OK {
			fmt.Printf("ERROR - %s\n", res.Message)
			errorCount++
			continue
		}
		fmt.Printf("SUCCESS (ISBN: %s)\n", b.ISBN)
		successCount++
	}

	if successCount > 0 {
		if err := lib.SaveData(ctx, db); err != nil {
			return err
		}
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d books\n", successCount)
	fmt.Printf("Errors: %d\n", errorCount)

	if successCount > 0 {
		fmt.Println("\nCatalog:")
		fmt.Printf("%-15s %-50s %-30s\n", "ISBN", "Title", "Author")
		fmt.Println(strings.Repeat("-", 95))
		for _, book := range lib.Books() {
			fmt.Printf("%-15s %-50s %-30s\n", book.ISBN, truncateString(book.Title, 50), truncateString(book.Author, 30))
		}
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
