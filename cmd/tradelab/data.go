package main

import (
	"fmt"

	"github.com/newthinker/tradelab/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Manage local bar data",
	Long:  `Commands for downloading history into the local parquet store used by the "parquet" provider.`,
}

var (
	pullSymbols  []string
	pullFrom     string
	pullTo       string
	pullInterval string
	pullSource   string
)

var dataPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download history from a remote provider into parquet files",
	RunE:  runDataPull,
}

func init() {
	dataPullCmd.Flags().StringSliceVar(&pullSymbols, "symbol", nil, "Symbols to pull (comma separated, required)")
	dataPullCmd.Flags().StringVar(&pullFrom, "from", "", "Start date YYYY-MM-DD (required)")
	dataPullCmd.Flags().StringVar(&pullTo, "to", "", "End date YYYY-MM-DD (required)")
	dataPullCmd.Flags().StringVar(&pullInterval, "interval", "1d", "Bar interval")
	dataPullCmd.Flags().StringVar(&pullSource, "source", "yahoo", "Provider to download from (yahoo or alpaca)")

	dataPullCmd.MarkFlagRequired("symbol")
	dataPullCmd.MarkFlagRequired("from")
	dataPullCmd.MarkFlagRequired("to")

	dataCmd.AddCommand(dataPullCmd)
	rootCmd.AddCommand(dataCmd)
}

func runDataPull(cmd *cobra.Command, args []string) error {
	start, end, err := parseDateRange(pullFrom, pullTo)
	if err != nil {
		return err
	}

	return withApp(func(a *app.App, log *zap.Logger) error {
		if pullSource == a.Parquet().Name() {
			return fmt.Errorf("source must be a remote provider, not %q", pullSource)
		}
		source, err := a.ProviderNamed(pullSource)
		if err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd, 0)
		defer cancel()

		out := cmd.OutOrStdout()
		for _, symbol := range pullSymbols {
			bars, err := source.FetchHistory(ctx, symbol, start, end, pullInterval)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", symbol, err)
			}
			if err := a.Parquet().Write(ctx, bars); err != nil {
				return fmt.Errorf("writing %s: %w", symbol, err)
			}
			log.Info("pulled history",
				zap.String("symbol", symbol),
				zap.String("source", source.Name()),
				zap.Int("bars", len(bars)),
			)
			fmt.Fprintf(out, "%s: %d bars\n", symbol, len(bars))
		}
		return nil
	})
}
