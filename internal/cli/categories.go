package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhiarc/Dream-interpreter/internal/domain"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the schools of interpretation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (default)\n", domain.General)
		for _, c := range domain.Categories() {
			fmt.Fprintln(out, c)
		}
		return nil
	},
}
