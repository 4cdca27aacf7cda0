package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/newthinker/tradelab/internal/app"
	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var compareFlags runFlags

var compareCmd = &cobra.Command{
	Use:   "compare [strategy...]",
	Short: "Run several strategies over the same bars",
	Long:  "Fetch history once and replay it through each strategy with its configured defaults",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCompare,
}

func init() {
	compareFlags.register(compareCmd)
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app.App, log *zap.Logger) error {
		req, err := compareFlags.request(a.Config().Backtest.Interval)
		if err != nil {
			return err
		}
		bt, err := compareFlags.backtester(cmd, a)
		if err != nil {
			return err
		}

		candidates := make([]backtest.Candidate, 0, len(args))
		for _, name := range args {
			decider, err := a.Strategies().New(name, nil)
			if err != nil {
				return err
			}
			candidates = append(candidates, backtest.Candidate{Name: name, Decider: decider})
		}

		ctx, cancel := commandContext(cmd, a.Config().Backtest.Timeout)
		defer cancel()

		results, err := bt.RunMany(ctx, req, candidates)
		if err != nil {
			return err
		}
		printComparison(cmd.OutOrStdout(), results)
		return nil
	})
}

func printComparison(out io.Writer, results []*backtest.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STRATEGY\tFINAL VALUE\tRETURN\tTRADES\tMAX DD\tSHARPE\tERRORS")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f%%\t%d\t%.2f%%\t%.2f\t%d\n",
			r.Strategy, r.FinalValue, r.Stats.TotalReturn, len(r.Trades),
			r.Stats.MaxDrawdown, r.Stats.SharpeRatio, len(r.Diagnostics))
	}
	w.Flush()
}
