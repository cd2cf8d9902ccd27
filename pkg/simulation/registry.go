package simulation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/picogrid/fragment-simulations/pkg/config"
	"github.com/picogrid/fragment-simulations/pkg/logger"
)

// ErrUnknownRunType means no mode is registered for a run type.
var ErrUnknownRunType = errors.New("no simulation registered for run type")

// Registry maps run types to simulation factories
type Registry struct {
	mu          sync.RWMutex
	simulations map[config.RunType]func() Simulation
}

// NewRegistry creates a new simulation registry
func NewRegistry() *Registry {
	return &Registry{
		simulations: make(map[config.RunType]func() Simulation),
	}
}

// Register adds a simulation to the registry
func (r *Registry) Register(runType config.RunType, factory func() Simulation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.simulations[runType]; exists {
		return fmt.Errorf("simulation %s already registered", runType)
	}

	r.simulations[runType] = factory
	return nil
}

// Get returns a new instance of the simulation for runType
func (r *Registry) Get(runType config.RunType) (Simulation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.simulations[runType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRunType, runType)
	}

	return factory(), nil
}

// List returns all registered run types in declaration order
func (r *Registry) List() []config.RunType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]config.RunType, 0, len(r.simulations))
	for rt := range r.simulations {
		types = append(types, rt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Dispatch runs the simulation selected by the input's run_type
func (r *Registry) Dispatch(ctx context.Context, env *Env) error {
	sim, err := r.Get(env.Config.RunType)
	if err != nil {
		return err
	}

	logger.WithPrefix(sim.Name()).Infof("Starting: %s", sim.Description())
	return sim.Run(ctx, env)
}

// DefaultRegistry is the global simulation registry
var DefaultRegistry = NewRegistry()
