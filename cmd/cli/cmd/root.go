package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/logger"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fragmd",
	Short: "Rigid fragment potential simulations",
	Long: `fragmd reads a simulation input describing molecular fragments and
their geometry, then computes energies, gradients, Hessians, optimized
geometries or dynamics trajectories with a fragment potential.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fragmd/config.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("fraglib-path", "", "fragment library directory (overrides the selected library)")

	for _, name := range []string{"log-level", "no-color", "fraglib-path"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	// Add commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(defaultsCmd)
	rootCmd.AddCommand(libCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in home directory
		viper.AddConfigPath("$HOME/.fragmd")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("fragmd")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in
	readErr := viper.ReadInConfig()

	// Configure logger once every source is known
	logger.SetLevel(logger.ParseLevel(viper.GetString("log-level")))
	logger.SetNoColor(viper.GetBool("no-color"))

	if readErr == nil {
		logger.Debugf("Using config file %s", viper.ConfigFileUsed())
	}
}

// parseOptions carries tool settings into the defaults of an input.
// The fraglib-path setting wins over the selected library.
func parseOptions() ([]config.ParseOption, error) {
	path := viper.GetString("fraglib-path")
	if path == "" {
		libs, err := config.LoadLibraries()
		if err != nil {
			return nil, fmt.Errorf("failed to load libraries: %w", err)
		}
		selected, ok := libs.SelectedPath()
		if !ok {
			return nil, nil
		}
		path = selected
	}

	logger.Debugf("Fragment library: %s", path)
	return []config.ParseOption{config.WithDefault("fraglib_path", `"`+path+`"`)}, nil
}
