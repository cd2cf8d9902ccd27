package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/logger"
	"github.com/picogrid/fragment-simulations/pkg/potential"
	"github.com/picogrid/fragment-simulations/pkg/report"
	"github.com/picogrid/fragment-simulations/pkg/simulation"

	// Import run modes to register them
	_ "github.com/picogrid/fragment-simulations/cmd/grad"
	_ "github.com/picogrid/fragment-simulations/cmd/hess"
	_ "github.com/picogrid/fragment-simulations/cmd/md"
	_ "github.com/picogrid/fragment-simulations/cmd/opt"
	_ "github.com/picogrid/fragment-simulations/cmd/sp"
)

var runCmd = &cobra.Command{
	Use:   "run <input>",
	Short: "Run a simulation",
	Long: `Run the simulation described by an input file. The run_type option
of the input selects what is computed.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulation,
}

func init() {
	runCmd.Flags().StringP("report", "r", "", "write a run summary (.yaml or .json, optionally .zst)")
	runCmd.Flags().String("plot", "", "plot the energy history of the run (.png, .svg or .pdf)")
	_ = viper.BindPFlag("report", runCmd.Flags().Lookup("report"))
	_ = viper.BindPFlag("plot", runCmd.Flags().Lookup("plot"))
}

func runSimulation(_ *cobra.Command, args []string) error {
	input := args[0]

	opts, err := parseOptions()
	if err != nil {
		return err
	}
	cfg, err := config.ParseFile(input, opts...)
	if err != nil {
		return err
	}

	engine := potential.NewModel()
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warnf("Failed to release engine: %v", err)
		}
	}()

	logger.Progressf("Loading %d fragments...", len(cfg.Fragments))
	if err := simulation.InitEngine(engine, cfg); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	env := &simulation.Env{
		Engine:   engine,
		Config:   cfg,
		Printer:  report.NewPrinter(os.Stdout, cfg),
		Recorder: report.NewRecorder(cfg.RunType.String()),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			logger.Warn("Received interrupt signal, stopping after the current evaluation...")
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.LogSection(fmt.Sprintf("Starting %s run", cfg.RunType))
	runErr := simulation.DefaultRegistry.Dispatch(ctx, env)
	if runErr != nil {
		env.Recorder.LogError("simulation failed", runErr)
	}

	if path := viper.GetString("report"); path != "" {
		summary := env.Recorder.Summarize(input, Version)
		if err := summary.Save(path); err != nil {
			logger.Errorf("Failed to write run summary: %v", err)
		} else {
			logger.Infof("Run summary written to %s", path)
		}
	}

	if path := viper.GetString("plot"); path != "" {
		switch err := env.Recorder.PlotMetrics(path, "hartree"); {
		case errors.Is(err, report.ErrNothingToPlot):
			logger.Warnf("Nothing to plot: %s runs record a single energy", cfg.RunType)
		case err != nil:
			logger.Errorf("Failed to plot energies: %v", err)
		default:
			logger.Infof("Energy plot written to %s", path)
		}
	}

	if runErr != nil {
		return fmt.Errorf("simulation failed: %w", runErr)
	}

	logger.Success("Simulation completed successfully")
	return nil
}
