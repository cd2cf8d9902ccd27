package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/picogrid/fragment-simulations/pkg/logger"
	"github.com/picogrid/fragment-simulations/pkg/potential"
	"github.com/picogrid/fragment-simulations/pkg/simulation"
)

// PotentialInfo describes a potential file found in a library directory
type PotentialInfo struct {
	// Fragment is the name an input uses to refer to the potential
	Fragment    string
	Path        string
	Description string
	Atoms       int
	Mass        float64
}

// DiscoverPotentials lists the potential files in dir. Fragment names come
// from the files; those of a library directory carry the library suffix.
func DiscoverPotentials(dir string, library bool) ([]PotentialInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for potentials: %w", err)
	}

	var potentials []PotentialInfo
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != simulation.PotentialExt {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := loadPotentialInfo(path, library)
		if err != nil {
			// Log error but continue scanning
			logger.Warnf("Skipping %s: %v", path, err)
			continue
		}
		potentials = append(potentials, *info)
	}

	sort.Slice(potentials, func(i, j int) bool {
		return potentials[i].Fragment < potentials[j].Fragment
	})
	return potentials, nil
}

func loadPotentialInfo(path string, library bool) (*PotentialInfo, error) {
	pot, err := potential.LoadPotential(path)
	if err != nil {
		return nil, err
	}

	name := pot.Name
	if library {
		name += simulation.LibrarySuffix
	}

	return &PotentialInfo{
		Fragment:    name,
		Path:        path,
		Description: pot.Description,
		Atoms:       len(pot.Atoms),
		Mass:        pot.Mass(),
	}, nil
}
