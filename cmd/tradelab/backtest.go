package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/newthinker/tradelab/internal/app"
	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// runFlags are shared by backtest and compare
type runFlags struct {
	symbol      string
	from        string
	to          string
	interval    string
	cash        float64
	wholeShares bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "Symbol to backtest (required)")
	cmd.Flags().StringVar(&f.from, "from", "", "Start date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&f.to, "to", "", "End date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&f.interval, "interval", "", "Bar interval (default from config)")
	cmd.Flags().Float64Var(&f.cash, "cash", 0, "Starting cash (default from config)")
	cmd.Flags().BoolVar(&f.wholeShares, "whole-shares", false, "Buy whole shares only")

	cmd.MarkFlagRequired("symbol")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
}

func (f *runFlags) request(defaultInterval string) (backtest.Request, error) {
	start, end, err := parseDateRange(f.from, f.to)
	if err != nil {
		return backtest.Request{}, err
	}
	interval := f.interval
	if interval == "" {
		interval = defaultInterval
	}
	return backtest.Request{Symbol: f.symbol, Start: start, End: end, Interval: interval}, nil
}

// backtester applies --cash and --whole-shares on top of the configured engine
func (f *runFlags) backtester(cmd *cobra.Command, a *app.App) (*backtest.Backtester, error) {
	bt := a.Backtester()
	cfg := bt.Engine().Config()
	changed := false
	if cmd.Flags().Changed("cash") {
		cfg.StartingCash = f.cash
		changed = true
	}
	if cmd.Flags().Changed("whole-shares") {
		cfg.WholeShares = f.wholeShares
		changed = true
	}
	if !changed {
		return bt, nil
	}
	engine, err := bt.Engine().WithConfig(cfg)
	if err != nil {
		return nil, err
	}
	return bt.WithEngine(engine), nil
}

var (
	backtestFlags  runFlags
	backtestParams []string
	backtestEquity bool
	backtestJSON   bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [strategy]",
	Short: "Run backtest on a strategy",
	Long:  "Replay historical bars through a strategy and show the final value, trade log and statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacktest,
}

func init() {
	backtestFlags.register(backtestCmd)
	backtestCmd.Flags().StringArrayVarP(&backtestParams, "param", "p", nil, "Strategy parameter key=value (repeatable)")
	backtestCmd.Flags().BoolVar(&backtestEquity, "equity", false, "Print the equity curve")
	backtestCmd.Flags().BoolVar(&backtestJSON, "json", false, "Print the full result as JSON")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	name := args[0]

	params, err := parseParams(backtestParams)
	if err != nil {
		return err
	}

	return withApp(func(a *app.App, log *zap.Logger) error {
		req, err := backtestFlags.request(a.Config().Backtest.Interval)
		if err != nil {
			return err
		}
		bt, err := backtestFlags.backtester(cmd, a)
		if err != nil {
			return err
		}
		decider, err := a.Strategies().New(name, params)
		if err != nil {
			return err
		}

		ctx, cancel := commandContext(cmd, a.Config().Backtest.Timeout)
		defer cancel()

		result, err := bt.Run(ctx, req, name, decider)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if backtestJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		printResult(out, result, backtestEquity)
		return nil
	})
}

func parseDateRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("invalid from date format (expected YYYY-MM-DD): %w", err))
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return time.Time{}, time.Time{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("invalid to date format (expected YYYY-MM-DD): %w", err))
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("end date must be after start date"))
	}
	return start, end, nil
}

// parseParams turns repeated key=value flags into a params map. Values stay
// strings; strategies decode them weakly.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("param %q is not key=value", pair))
		}
		params[key] = strings.TrimSpace(value)
	}
	return params, nil
}

func printResult(out io.Writer, r *backtest.Result, showEquity bool) {
	fmt.Fprintln(out, "=== tradelab Backtest ===")
	fmt.Fprintf(out, "Strategy: %s\n", r.Strategy)
	fmt.Fprintf(out, "Symbol:   %s\n", r.Symbol)
	fmt.Fprintf(out, "Period:   %s to %s\n", r.StartDate.Format(dateLayout), r.EndDate.Format(dateLayout))
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Starting cash: %.2f\n", r.StartingCash)
	fmt.Fprintf(out, "Final value:   %.2f\n", r.FinalValue)
	fmt.Fprintf(out, "Total return:  %.2f%%\n", r.Stats.TotalReturn)
	fmt.Fprintf(out, "Max drawdown:  %.2f%%\n", r.Stats.MaxDrawdown)
	fmt.Fprintf(out, "Sharpe ratio:  %.2f\n", r.Stats.SharpeRatio)
	fmt.Fprintf(out, "Win rate:      %.2f%% (%d/%d closed)\n",
		r.Stats.WinRate, r.Stats.WinningTrades, r.Stats.WinningTrades+r.Stats.LosingTrades)
	fmt.Fprintf(out, "Final state:   cash %.2f, position %.4f\n", r.Final.Cash, r.Final.PositionSize)

	if len(r.Trades) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Trades:")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tSIDE\tPRICE\tSIZE")
		for _, t := range r.Trades {
			fmt.Fprintf(w, "%s\t%s\t%.4f\t%.4f\n", t.Time.Format(time.DateTime), strings.ToUpper(string(t.Side)), t.Price, t.Size)
		}
		w.Flush()
	}

	if showEquity {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Equity:")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tCLOSE\tVALUE")
		for i, e := range r.Equity {
			price := 0.0
			if i < len(r.Prices) {
				price = r.Prices[i].Value
			}
			fmt.Fprintf(w, "%s\t%.4f\t%.2f\n", e.Time.Format(time.DateTime), price, e.Value)
		}
		w.Flush()
	}

	if r.HasDiagnostics() {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Diagnostics (%d bars skipped by strategy errors):\n", len(r.Diagnostics))
		for _, d := range r.Diagnostics {
			fmt.Fprintf(out, "  bar %d %s: %s\n", d.Index, d.Time.Format(time.DateTime), d.Message)
		}
	}
}

// sortedKeys is used for stable printing of param maps
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
