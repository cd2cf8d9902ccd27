package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/utils"
)

var libCmd = &cobra.Command{
	Use:   "lib",
	Short: "Manage fragment libraries",
	Long: `Manage the fragment library directories known to fragmd. The selected
library supplies the default fraglib_path of every input.`,
}

var libListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered libraries",
	RunE:  listLibraries,
}

var libAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a library directory",
	RunE:  addLibrary,
}

var libRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a library",
	RunE:  removeLibrary,
}

var libSelectCmd = &cobra.Command{
	Use:   "select [name]",
	Short: "Select the default library",
	Args:  cobra.MaximumNArgs(1),
	RunE:  selectLibrary,
}

var libShowCmd = &cobra.Command{
	Use:   "show [name|dir]",
	Short: "List the fragment potentials in a library",
	Long: `List the potential files of a registered library, a directory, or the
selected library when no argument is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: showLibrary,
}

func init() {
	libAddCmd.Flags().String("name", "", "library name")
	libAddCmd.Flags().String("path", "", "library directory")
	libAddCmd.Flags().String("description", "", "library description")

	libCmd.AddCommand(libListCmd)
	libCmd.AddCommand(libAddCmd)
	libCmd.AddCommand(libRemoveCmd)
	libCmd.AddCommand(libSelectCmd)
	libCmd.AddCommand(libShowCmd)
}

func listLibraries(cmd *cobra.Command, args []string) error {
	libs, err := config.LoadLibraries()
	if err != nil {
		return fmt.Errorf("failed to load libraries: %w", err)
	}

	if len(libs.Libraries) == 0 {
		fmt.Println("No libraries configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "\tNAME\tPATH\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "\t----\t----\t-----------")

	for _, lib := range libs.Libraries {
		mark := ""
		if lib.Name == libs.Selected {
			mark = "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mark, lib.Name, lib.Path, lib.Description)
	}

	return w.Flush()
}

func addLibrary(cmd *cobra.Command, args []string) error {
	libs, err := config.LoadLibraries()
	if err != nil {
		return fmt.Errorf("failed to load libraries: %w", err)
	}

	var lib config.Library
	lib.Name, _ = cmd.Flags().GetString("name")
	lib.Path, _ = cmd.Flags().GetString("path")
	lib.Description, _ = cmd.Flags().GetString("description")

	// Prompt for whatever the flags left out
	if lib.Name == "" {
		namePrompt := &survey.Input{
			Message: "Library name:",
		}
		if err := survey.AskOne(namePrompt, &lib.Name, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	if lib.Path == "" {
		pathPrompt := &survey.Input{
			Message: "Library directory:",
			Help:    "Directory holding <fragment>.efp potential files",
		}
		if err := survey.AskOne(pathPrompt, &lib.Path, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	abs, err := filepath.Abs(lib.Path)
	if err != nil {
		return fmt.Errorf("invalid library path: %w", err)
	}
	lib.Path = abs
	if info, err := os.Stat(lib.Path); err != nil || !info.IsDir() {
		return fmt.Errorf("library path %s is not a directory", lib.Path)
	}

	if err := libs.Add(lib); err != nil {
		return err
	}

	// Save config
	if err := config.SaveLibraries(libs); err != nil {
		return fmt.Errorf("failed to save libraries: %w", err)
	}

	fmt.Printf("Library %s added successfully\n", lib.Name)
	return nil
}

func removeLibrary(cmd *cobra.Command, args []string) error {
	libs, err := config.LoadLibraries()
	if err != nil {
		return fmt.Errorf("failed to load libraries: %w", err)
	}

	if len(libs.Libraries) == 0 {
		fmt.Println("No libraries to remove")
		return nil
	}

	selected, err := chooseLibrary(libs, "Select library to remove:")
	if err != nil {
		return err
	}

	// Confirm removal
	var confirm bool
	confirmPrompt := &survey.Confirm{
		Message: fmt.Sprintf("Are you sure you want to remove %s?", selected),
		Default: false,
	}
	if err := survey.AskOne(confirmPrompt, &confirm); err != nil {
		return err
	}

	if !confirm {
		fmt.Println("Removal cancelled")
		return nil
	}

	libs.Remove(selected)

	// Save config
	if err := config.SaveLibraries(libs); err != nil {
		return fmt.Errorf("failed to save libraries: %w", err)
	}

	fmt.Printf("Library %s removed successfully\n", selected)
	return nil
}

func selectLibrary(cmd *cobra.Command, args []string) error {
	libs, err := config.LoadLibraries()
	if err != nil {
		return fmt.Errorf("failed to load libraries: %w", err)
	}

	var name string
	if len(args) == 1 {
		name = args[0]
		if _, ok := libs.Find(name); !ok {
			return fmt.Errorf("library %s not found", name)
		}
	} else {
		if len(libs.Libraries) == 0 {
			return fmt.Errorf("no libraries configured")
		}
		if name, err = chooseLibrary(libs, "Select default library:"); err != nil {
			return err
		}
	}

	libs.Selected = name
	if err := config.SaveLibraries(libs); err != nil {
		return fmt.Errorf("failed to save libraries: %w", err)
	}

	fmt.Printf("Library %s selected\n", name)
	return nil
}

func showLibrary(cmd *cobra.Command, args []string) error {
	dir, err := libraryDir(args)
	if err != nil {
		return err
	}

	potentials, err := utils.DiscoverPotentials(dir, true)
	if err != nil {
		return err
	}

	if len(potentials) == 0 {
		fmt.Printf("No potentials found in %s\n", dir)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FRAGMENT\tATOMS\tMASS (AMU)\tDESCRIPTION")
	_, _ = fmt.Fprintln(w, "--------\t-----\t----------\t-----------")

	for _, p := range potentials {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%.3f\t%s\n", p.Fragment, p.Atoms, p.Mass, p.Description)
	}

	return w.Flush()
}

// libraryDir resolves a library name or directory argument, falling back
// to the configured fragment library.
func libraryDir(args []string) (string, error) {
	libs, err := config.LoadLibraries()
	if err != nil {
		return "", fmt.Errorf("failed to load libraries: %w", err)
	}

	if len(args) == 1 {
		if lib, ok := libs.Find(args[0]); ok {
			return lib.Path, nil
		}
		return args[0], nil
	}

	opts, err := parseOptions()
	if err != nil {
		return "", err
	}
	cfg, err := config.Defaults(opts...)
	if err != nil {
		return "", err
	}
	return cfg.FraglibPath, nil
}

func chooseLibrary(libs *config.Libraries, message string) (string, error) {
	names := make([]string, len(libs.Libraries))
	for i, lib := range libs.Libraries {
		names[i] = lib.Name
	}

	var selected string
	prompt := &survey.Select{
		Message: message,
		Options: names,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	return selected, nil
}
