package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/logger"
	"github.com/picogrid/fragment-simulations/pkg/potential"
)

const envPrefix = "FRAGMD_"

// SkipPrompts reports whether prompts are disabled (for CI/automation)
func SkipPrompts() bool {
	return os.Getenv(envPrefix+"SKIP_PROMPTS") == "true"
}

// PromptForOptions asks for every input option, offering the value already
// in cfg as the default, and stores the answers in cfg. An environment
// variable FRAGMD_<OPTION> replaces the offered default.
func PromptForOptions(cfg *config.Config) error {
	for _, opt := range config.Options() {
		if err := promptForOption(cfg, opt); err != nil {
			return fmt.Errorf("failed to get %s: %w", opt.Name, err)
		}
	}
	return nil
}

func promptForOption(cfg *config.Config, opt config.Option) error {
	envKey := envPrefix + strings.ToUpper(opt.Name)
	if envValue := os.Getenv(envKey); envValue != "" {
		if err := cfg.Set(opt.Name, envValue); err != nil {
			if SkipPrompts() {
				return fmt.Errorf("%s: %w", envKey, err)
			}
			logger.Warnf("Ignoring %s: %v", envKey, err)
		}
	}
	if SkipPrompts() {
		return nil
	}

	current, err := cfg.Format(opt.Name)
	if err != nil {
		return err
	}
	message := fmt.Sprintf("%s (%s):", opt.Usage, opt.Name)

	var answer string
	switch {
	case opt.MultiChoice():
		var selected []string
		prompt := &survey.MultiSelect{
			Message: message,
			Options: opt.Choices(),
			Default: strings.Fields(current),
		}
		if err := survey.AskOne(prompt, &selected, survey.WithValidator(survey.MinItems(1))); err != nil {
			return err
		}
		answer = strings.Join(selected, " ")

	case opt.Choices() != nil:
		prompt := &survey.Select{
			Message: message,
			Options: opt.Choices(),
			Default: current,
		}
		if err := survey.AskOne(prompt, &answer); err != nil {
			return err
		}

	default:
		prompt := &survey.Input{
			Message: message,
			Default: current,
			Help:    fmt.Sprintf("Default: %s", opt.Default),
		}
		validate := func(val interface{}) error {
			return checkOption(cfg, opt.Name, val.(string))
		}
		if err := survey.AskOne(prompt, &answer, survey.WithValidator(validate)); err != nil {
			return err
		}
	}

	return cfg.Set(opt.Name, answer)
}

// checkOption parses text as option name on a scratch copy of cfg
func checkOption(cfg *config.Config, name, text string) error {
	scratch := *cfg
	return scratch.Set(name, text)
}

// PromptForFragments asks for fragment names and positions until the user
// declines another one. known lists fragment names to suggest.
func PromptForFragments(cfg *config.Config, known []string) error {
	for {
		add := true
		if len(cfg.Fragments) > 0 {
			confirm := &survey.Confirm{
				Message: fmt.Sprintf("Add another fragment? (%d so far)", len(cfg.Fragments)),
				Default: false,
			}
			if err := survey.AskOne(confirm, &add); err != nil {
				return err
			}
		}
		if !add {
			return nil
		}

		var name string
		namePrompt := &survey.Input{
			Message: "Fragment name:",
			Help:    "Names ending in _l are read from the fragment library",
			Suggest: func(prefix string) []string {
				return suggest(known, prefix)
			},
		}
		if err := survey.AskOne(namePrompt, &name, survey.WithValidator(survey.Required)); err != nil {
			return err
		}

		coord, err := promptCoordinates(cfg.CoordType)
		if err != nil {
			return err
		}
		if err := cfg.AddFragment(name, coord); err != nil {
			return err
		}
	}
}

func promptCoordinates(ct potential.CoordType) ([]float64, error) {
	messages := []string{"Position (x y z alpha beta gamma):"}
	if ct == potential.CoordPoints {
		messages = []string{"First point (x y z):", "Second point (x y z):", "Third point (x y z):"}
	}
	perLine := ct.Size() / len(messages)

	var coord []float64
	for _, message := range messages {
		var line string
		prompt := &survey.Input{Message: message}
		validate := func(val interface{}) error {
			_, err := ParseFloats(val.(string), perLine)
			return err
		}
		if err := survey.AskOne(prompt, &line, survey.WithValidator(validate)); err != nil {
			return nil, err
		}
		values, err := ParseFloats(line, perLine)
		if err != nil {
			return nil, err
		}
		coord = append(coord, values...)
	}
	return coord, nil
}

// ParseFloats reads exactly n whitespace-separated numbers from text
func ParseFloats(text string, n int) ([]float64, error) {
	s := config.NewLineStream(strings.NewReader(text))
	s.Next()
	return readFloats(s, n)
}

// ParseFragment reads a fragment name, double-quoted when it holds
// whitespace, followed by exactly n numbers
func ParseFragment(text string, n int) (string, []float64, error) {
	s := config.NewLineStream(strings.NewReader(text))
	s.Next()

	name, ok := s.String()
	if !ok {
		return "", nil, fmt.Errorf("expected a fragment name")
	}
	values, err := readFloats(s, n)
	if err != nil {
		return "", nil, err
	}
	return name, values, nil
}

func readFloats(s *config.LineStream, n int) ([]float64, error) {
	values := make([]float64, n)
	for i := range values {
		v, ok := s.Float()
		if !ok {
			return nil, fmt.Errorf("expected %d numbers, got %d", n, i)
		}
		values[i] = v
	}
	if !s.AtEnd() {
		return nil, fmt.Errorf("expected %d numbers, got more", n)
	}
	return values, nil
}

func suggest(known []string, prefix string) []string {
	var out []string
	for _, name := range known {
		if strings.HasPrefix(name, strings.ToLower(prefix)) {
			out = append(out, name)
		}
	}
	return out
}
