package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"mailpilot/internal/models"
	"mailpilot/internal/triage"
)

var (
	processSender  string
	processSubject string
	processContent string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the triage pipeline for a single email",
	Long: `Classifies one email against the stored corpus and prints the
category breakdown and the suggested response.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to get app instance: %w", err)
		}
		defer appInstance.Close()

		if processSender == "" {
			return fmt.Errorf("--sender is required")
		}

		query := models.EmailQuery{
			Sender:  processSender,
			Subject: processSubject,
			Content: processContent,
		}

		result, err := appInstance.Pipeline.Process(ctx, query)
		if err != nil {
			if errors.Is(err, triage.ErrNoMatches) {
				color.Yellow("No similar emails found for %s", query.Sender)
				return nil
			}
			return fmt.Errorf("failed to process email: %w", err)
		}

		printClassification(result)
		return nil
	},
}

func printClassification(result *models.EmailResult) {
	cls := result.Classification

	if cls.IsConfident {
		color.Green("Category: %s (%.1f%% confidence)", cls.MainCategory, cls.Confidence*100)
	} else {
		color.Yellow("Category: %s (%.1f%% confidence, below threshold)", cls.MainCategory, cls.Confidence*100)
	}
	if cls.Summary != "" {
		fmt.Printf("Summary: %s\n", cls.Summary)
	}
	fmt.Println()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Category", "Weight"})
	names := make([]string, 0, len(cls.AllCategories))
	for name := range cls.AllCategories {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return cls.AllCategories[names[i]] > cls.AllCategories[names[j]]
	})
	for _, name := range names {
		table.Append([]string{name, fmt.Sprintf("%.3f", cls.AllCategories[name])})
	}
	table.Render()

	fmt.Println()
	fmt.Printf("Suggested response (based on %d candidates, avg similarity %.3f):\n",
		result.Response.BasedOnCandidates, result.Response.AverageSimilarity)
	fmt.Println(result.Response.Suggested)
}

func init() {
	processCmd.Flags().StringVar(&processSender, "sender", "", "sender address of the email")
	processCmd.Flags().StringVar(&processSubject, "subject", "", "subject line of the email")
	processCmd.Flags().StringVar(&processContent, "content", "", "body of the email")
	rootCmd.AddCommand(processCmd)
}
