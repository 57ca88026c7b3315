package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently processed emails",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to get app instance: %w", err)
		}
		defer appInstance.Close()

		entries, err := appInstance.HistoryStore.ListProcessedEmails(ctx, historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list history: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No processed emails yet.")
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Processed", "Sender", "Subject", "Category", "Confidence"})
		for _, e := range entries {
			table.Append([]string{
				fmt.Sprintf("%d", e.ID),
				e.ProcessedAt.Format("2006-01-02 15:04"),
				e.Sender,
				e.Subject,
				e.MainCategory,
				fmt.Sprintf("%.2f", e.Confidence),
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of entries to show")
	rootCmd.AddCommand(historyCmd)
}
