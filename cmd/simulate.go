package cmd

import (
	"context"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/cpu"
	"github.com/spf13/cobra"
	mpb "github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"

	"github.com/bcdannyboy/cmdty/config"
	"github.com/bcdannyboy/cmdty/montecarlo"
	"github.com/bcdannyboy/cmdty/random"
	"github.com/bcdannyboy/cmdty/report"
)

func init() {
	SimulateCmd.Flags().Int("num-sims", 0, "override simulation.num_sims")
	SimulateCmd.Flags().Uint64("seed", 0, "override simulation.seed")
	SimulateCmd.Flags().Int("workers", 0, "override simulation.workers, 0 for one per logical cpu")
	SimulateCmd.Flags().Bool("antithetic", false, "mirror every other draw")
	SimulateCmd.Flags().Bool("progress", true, "show a progress bar on stderr")
	RootCmd.AddCommand(SimulateCmd)
}

var SimulateCmd = &cobra.Command{
	Use:          "simulate",
	Short:        "simulate spot price paths and compare their mean against the forward curve",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applySimulateFlags(cmd, cfg)

		res, err := simulate(cmd.Context(), cfg, boolFlag(cmd, "progress"))
		if err != nil {
			return err
		}

		forward, err := cfg.Forward()
		if err != nil {
			return err
		}
		summary, err := report.SummarizeSimulation(res, forward)
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

func boolFlag(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}

func applySimulateFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("num-sims") {
		cfg.Simulation.NumSims, _ = flags.GetInt("num-sims")
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("workers") {
		cfg.Simulation.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("antithetic") {
		cfg.Simulation.Antithetic, _ = flags.GetBool("antithetic")
	}
}

// defaultWorkers counts logical cpus, falling back to the runtime's view.
func defaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		log.WithError(err).Warnf("cpu count unavailable, using runtime.NumCPU")
		return runtime.NumCPU()
	}
	return n
}

// workerNormals hands a single worker the simulator's own generator, so one
// worker reproduces a sequential run. Several workers draw from streams
// seeded off the configured seed.
func workerNormals(normals *random.MersenneNormal, workers int, opts ...random.MersenneOption) func(int) random.NormalGenerator {
	if workers == 1 {
		return func(int) random.NormalGenerator { return normals }
	}
	seeds := random.Seeds(normals.Seed(), workers)
	return func(w int) random.NormalGenerator {
		return random.NewMersenneNormal(seeds[w], opts...)
	}
}

func simulate(ctx context.Context, cfg *config.Config, progress bool) (*montecarlo.Results, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	valuation, err := cfg.Valuation()
	if err != nil {
		return nil, err
	}
	dayCount, err := cfg.DayCountFunc()
	if err != nil {
		return nil, err
	}
	forward, err := cfg.Forward()
	if err != nil {
		return nil, err
	}
	params, err := cfg.ModelParameters()
	if err != nil {
		return nil, err
	}
	periods, err := cfg.SimulationPeriods(forward)
	if err != nil {
		return nil, err
	}

	var opts []random.MersenneOption
	if cfg.Simulation.Antithetic {
		opts = append(opts, random.WithAntithetic())
	}

	normals := random.NewMersenneNormal(cfg.Simulation.Seed, opts...)
	sim, err := montecarlo.NewSimulator(params, valuation, forward, periods, dayCount, normals)
	if err != nil {
		return nil, err
	}

	workers := cfg.Simulation.Workers
	if workers == 0 {
		workers = defaultWorkers()
	}
	numSims := cfg.Simulation.NumSims
	newNormals := workerNormals(normals, workers, opts...)
	log.Infof("simulating %d paths over %d periods with %d factors on %d workers",
		numSims, len(periods), params.NumFactors(), workers)

	if !progress {
		return sim.SimulateParallel(ctx, numSims, workers, newNormals)
	}

	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
	bar := p.AddBar(int64(numSims),
		mpb.PrependDecorators(
			decor.Name("Simulating"),
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("(%d / %d)", decor.WCSyncSpace),
		),
	)

	res, err := sim.SimulateParallel(ctx, numSims, workers, newNormals,
		montecarlo.WithProgress(func(delta int) { bar.IncrBy(delta) }))
	if err != nil {
		bar.Abort(true)
	}
	p.Wait()
	return res, err
}
