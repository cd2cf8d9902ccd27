package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/logger"
	"github.com/picogrid/fragment-simulations/pkg/utils"
)

var newCmd = &cobra.Command{
	Use:   "new <output>",
	Short: "Create a simulation input interactively",
	Long: `Build a simulation input by answering a prompt for every option and
fragment. Set FRAGMD_SKIP_PROMPTS=true to take defaults (and FRAGMD_<OPTION>
overrides) without prompting; fragments then come from --fragment.`,
	Args: cobra.ExactArgs(1),
	RunE: newInput,
}

func init() {
	newCmd.Flags().StringArrayP("fragment", "f", nil, `fragment as "name v1 v2 ..." in input units, name quoted if it has spaces (repeatable)`)
	newCmd.Flags().Bool("force", false, "overwrite an existing output file")
}

func newInput(cmd *cobra.Command, args []string) error {
	output := args[0]
	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(output); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", output)
	}

	opts, err := parseOptions()
	if err != nil {
		return err
	}
	cfg, err := config.Defaults(opts...)
	if err != nil {
		return err
	}

	logger.LogSection("Simulation options")
	if err := utils.PromptForOptions(cfg); err != nil {
		return err
	}

	fragments, _ := cmd.Flags().GetStringArray("fragment")
	for _, spec := range fragments {
		if err := addFragmentFlag(cfg, spec); err != nil {
			return fmt.Errorf("--fragment %q: %w", spec, err)
		}
	}

	if len(cfg.Fragments) == 0 {
		if utils.SkipPrompts() {
			return fmt.Errorf("no fragments given (use --fragment)")
		}
		logger.LogSection("Fragments")
		if err := utils.PromptForFragments(cfg, knownFragments(cfg)); err != nil {
			return err
		}
	}

	if err := writeInput(output, cfg); err != nil {
		return err
	}

	// the written file must read back
	if _, err := config.ParseFile(output, opts...); err != nil {
		return fmt.Errorf("generated input does not parse: %w", err)
	}

	logger.Successf("Input with %d fragments written to %s", len(cfg.Fragments), output)
	return nil
}

func addFragmentFlag(cfg *config.Config, spec string) error {
	name, coord, err := utils.ParseFragment(spec, cfg.CoordType.Size())
	if err != nil {
		return err
	}
	return cfg.AddFragment(name, coord)
}

func knownFragments(cfg *config.Config) []string {
	var names []string
	for _, lib := range []struct {
		dir     string
		library bool
	}{
		{cfg.FraglibPath, true},
		{cfg.UserlibPath, false},
	} {
		found, err := utils.DiscoverPotentials(lib.dir, lib.library)
		if err != nil {
			logger.Debugf("No fragment suggestions from %s: %v", lib.dir, err)
			continue
		}
		for _, p := range found {
			names = append(names, p.Fragment)
		}
	}
	return names
}

func writeInput(path string, cfg *config.Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create input file: %w", err)
	}
	if err := config.Write(f, cfg); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write input file: %w", err)
	}
	return f.Close()
}
