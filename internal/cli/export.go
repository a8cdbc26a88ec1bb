package cli

import (
	"github.com/spf13/cobra"

	"sentiment-engine/internal/app"
)

var (
	exportTicker     string
	exportCompare    []string
	exportPNGPath    string
	exportCSVPath    string
	exportComparePNG string
	exportMaxPoints  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a ticker's daily price and sentiment as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			Ticker:         exportTicker,
			Compare:        exportCompare,
			PNGPath:        exportPNGPath,
			CSVPath:        exportCSVPath,
			ComparePNGPath: exportComparePNG,
			MaxPoints:      exportMaxPoints,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportTicker, "ticker", "", "Ticker to export")
	exportCmd.Flags().StringSliceVar(&exportCompare, "compare", nil, "Tickers to chart against --ticker, indexed to 100 (defaults to export.benchmarks)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write price/sentiment PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write daily CSV data")
	exportCmd.Flags().StringVar(&exportComparePNG, "compare-png", "", "Path to write relative-performance PNG chart")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
	_ = exportCmd.MarkFlagRequired("ticker")
}
