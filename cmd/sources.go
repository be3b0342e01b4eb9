package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sells-group/resolve-cli/internal/trust"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Print the loaded trust catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := trust.Load(cfg.Trust.CatalogPath)
		if err != nil {
			return err
		}

		scores := catalog.Sources()
		ids := make([]string, 0, len(scores))
		for id := range scores {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			fmt.Printf("%-24s %v\n", id, scores[id])
		}
		fmt.Printf("%-24s %v\n", "(default)", catalog.Default())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
