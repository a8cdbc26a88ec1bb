package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sentiment-engine/internal/app"
	"sentiment-engine/internal/sentiment"
)

var (
	showTicker string
	showLabels []string
	showLimit  int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List tracked tickers, or recent scored headlines for one ticker",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Ticker: showTicker,
			Limit:  showLimit,
		}
		for _, raw := range showLabels {
			label, ok := sentiment.ParseLabel(raw)
			if !ok {
				return fmt.Errorf("invalid --label %q (want one of %v)", raw, sentiment.Labels())
			}
			opts.Labels = append(opts.Labels, label)
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showTicker, "ticker", "", "Ticker whose headlines to display")
	showCmd.Flags().StringSliceVar(&showLabels, "label", nil, "Only show headlines with these labels (Positive, Neutral, Negative)")
	showCmd.Flags().IntVar(&showLimit, "limit", 50, "Number of headlines to display")
}
