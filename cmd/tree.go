package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bcdannyboy/cmdty/report"
	"github.com/bcdannyboy/cmdty/trinomial"
)

func init() {
	TreeCmd.Flags().Float64("mean-reversion", 0, "override tree.mean_reversion")
	TreeCmd.Flags().Float64("time-delta", 0, "override tree.time_delta, in years")
	RootCmd.AddCommand(TreeCmd)
}

var TreeCmd = &cobra.Command{
	Use:          "tree",
	Short:        "build a one-factor trinomial tree and report how it prices the forward curve",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("mean-reversion") {
			cfg.Tree.MeanReversion, _ = cmd.Flags().GetFloat64("mean-reversion")
		}
		if cmd.Flags().Changed("time-delta") {
			cfg.Tree.TimeDelta, _ = cmd.Flags().GetFloat64("time-delta")
		}

		forward, err := cfg.Forward()
		if err != nil {
			return err
		}
		vol, err := cfg.TreeVolatility(forward)
		if err != nil {
			return err
		}

		tree, err := trinomial.CreateTree(forward, cfg.Tree.MeanReversion, vol, cfg.Tree.TimeDelta)
		if err != nil {
			return err
		}
		log.Infof("built tree over %d periods, jmax %d", tree.Len(), tree.JMax())

		summary, err := report.SummarizeTree(tree, forward)
		if err != nil {
			return err
		}
		format, err := report.ParseFormat(cfg.Output)
		if err != nil {
			return err
		}
		return report.Write(cmd.OutOrStdout(), format, summary)
	},
}
