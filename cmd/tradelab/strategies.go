package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/newthinker/tradelab/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List available strategies and their default params",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App, log *zap.Logger) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPARAMS\tDESCRIPTION")
			for _, def := range a.Strategies().List() {
				params := make([]string, 0, len(def.Defaults))
				for _, k := range sortedKeys(def.Defaults) {
					params = append(params, fmt.Sprintf("%s=%v", k, def.Defaults[k]))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", def.Name, strings.Join(params, ","), def.Description)
			}
			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
