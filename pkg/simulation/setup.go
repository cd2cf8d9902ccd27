package simulation

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/logger"
	"github.com/picogrid/fragment-simulations/pkg/potential"
)

// PotentialExt is the file extension of fragment potential files.
const PotentialExt = ".efp"

// LibrarySuffix marks a fragment loaded from the fragment library.
const LibrarySuffix = "_l"

// PotentialPaths returns the file of every distinct fragment type in cfg,
// ordered by fragment name. Names ending in _l come from fraglib_path with
// the suffix dropped, all others from userlib_path.
func PotentialPaths(cfg *config.Config) []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range cfg.Fragments {
		if !seen[f.Name] {
			seen[f.Name] = true
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, name := range names {
		if base, ok := strings.CutSuffix(name, LibrarySuffix); ok {
			paths[i] = filepath.Join(cfg.FraglibPath, base+PotentialExt)
		} else {
			paths[i] = filepath.Join(cfg.UserlibPath, name+PotentialExt)
		}
	}
	return paths
}

// InitEngine loads the potentials cfg needs into e, adds every fragment and
// places it.
func InitEngine(e potential.Engine, cfg *config.Config) error {
	if err := e.SetOptions(cfg.EngineOptions()); err != nil {
		return fmt.Errorf("failed to set engine options: %w", err)
	}

	for _, path := range PotentialPaths(cfg) {
		logger.Debugf("Loading potential %s", path)
		if err := e.AddPotential(path); err != nil {
			return fmt.Errorf("failed to load potential: %w", err)
		}
	}

	for i, f := range cfg.Fragments {
		if err := e.AddFragment(f.Name); err != nil {
			return fmt.Errorf("failed to add fragment %d: %w", i+1, err)
		}
	}

	if cfg.EnablePBC {
		box := cfg.PeriodicBox
		if err := e.SetPeriodicBox(box[0], box[1], box[2]); err != nil {
			return fmt.Errorf("failed to set periodic box: %w", err)
		}
	}

	for i, f := range cfg.Fragments {
		if err := e.SetFragmentCoordinates(i, cfg.CoordType, f.Coord); err != nil {
			return fmt.Errorf("failed to place fragment %d: %w", i+1, err)
		}
	}

	logger.Infof("Initialized %d fragments", e.FragmentCount())
	return nil
}
