package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/picogrid/fragment-simulations/pkg/simulation"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available run types",
	Long:  `List every run_type value with a description of what it computes`,
	RunE:  listSimulations,
}

func listSimulations(cmd *cobra.Command, args []string) error {
	types := simulation.DefaultRegistry.List()
	if len(types) == 0 {
		fmt.Println("No run types registered")
		return nil
	}

	// Create tabwriter for formatted output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN_TYPE\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "--------\t-----------")

	for _, rt := range types {
		sim, err := simulation.DefaultRegistry.Get(rt)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", sim.Name(), sim.Description())
	}

	return w.Flush()
}
