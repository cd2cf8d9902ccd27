package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/picogrid/fragment-simulations/pkg/config"
)

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print every input option with its default value",
	RunE:  printDefaults,
}

func printDefaults(cmd *cobra.Command, args []string) error {
	opts, err := parseOptions()
	if err != nil {
		return err
	}
	cfg, err := config.Defaults(opts...)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "OPTION\tDEFAULT\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "------\t-------\t-----------")

	for _, opt := range config.Options() {
		value, err := cfg.Format(opt.Name)
		if err != nil {
			return err
		}
		usage := opt.Usage
		if choices := opt.Choices(); choices != nil {
			usage = fmt.Sprintf("%s %v", usage, choices)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", opt.Name, value, usage)
	}

	return w.Flush()
}
