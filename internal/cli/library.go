package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhiarc/Dream-interpreter/internal/adapters/library"
	"github.com/abhiarc/Dream-interpreter/internal/domain"
)

var librarySchool string

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Print reference notes for each school",
	Args:  cobra.NoArgs,
	RunE:  runLibrary,
}

func init() {
	libraryCmd.Flags().StringVar(&librarySchool, "school", "", "print only this school")
}

func runLibrary(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store := library.NewEmbeddedStore()

	var entries []domain.LibraryEntry
	if librarySchool == "" {
		all, err := store.Entries(ctx)
		if err != nil {
			return err
		}
		entries = all
	} else {
		category, err := domain.ParseCategory(librarySchool)
		if err != nil {
			return fmt.Errorf("%w: %q", err, librarySchool)
		}
		entry, err := store.Entry(ctx, category)
		if err != nil {
			return fmt.Errorf("%w: %q", err, librarySchool)
		}
		entries = []domain.LibraryEntry{entry}
	}

	out := cmd.OutOrStdout()
	for i, e := range entries {
		if i > 0 {
			fmt.Fprintln(out)
		}
		printEntry(out, e)
	}
	return nil
}

func printEntry(w io.Writer, e domain.LibraryEntry) {
	heading := fmt.Sprintf("%s: %s", e.Category, e.Title)
	fmt.Fprintln(w, heading)
	fmt.Fprintln(w, strings.Repeat("=", len(heading)))
	for _, p := range e.Paragraphs {
		fmt.Fprintln(w)
		fmt.Fprintln(w, strings.TrimSpace(p))
	}
}
