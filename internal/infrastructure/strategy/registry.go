package strategy

import (
	"fmt"
	"sync"

	"github.com/erp/costing/internal/domain/shared"
	"github.com/erp/costing/internal/domain/shared/strategy"
)

// CostStrategyRegistry holds one costing strategy per supported cost method
type CostStrategyRegistry struct {
	mu         sync.RWMutex
	strategies map[strategy.CostMethod]strategy.CostingStrategy
}

// NewCostStrategyRegistry creates an empty registry
func NewCostStrategyRegistry() *CostStrategyRegistry {
	return &CostStrategyRegistry{
		strategies: make(map[strategy.CostMethod]strategy.CostingStrategy),
	}
}

// Register registers a strategy under its method. Only the closed set of
// supported methods is accepted and each may be registered once.
func (r *CostStrategyRegistry) Register(s strategy.CostingStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	method := s.Method()
	if !method.IsValid() {
		return fmt.Errorf("%w: %s", strategy.ErrInvalidCostMethod, method)
	}
	if _, exists := r.strategies[method]; exists {
		return fmt.Errorf("%w: cost strategy '%s' already registered", shared.ErrAlreadyExists, method)
	}
	r.strategies[method] = s
	return nil
}

// Get returns the strategy registered for method
func (r *CostStrategyRegistry) Get(method strategy.CostMethod) (strategy.CostingStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.strategies[method]
	if !exists {
		return nil, fmt.Errorf("%w: cost strategy '%s' not found", shared.ErrNotFound, method)
	}
	return s, nil
}

// Resolve dispatches on method. Anything outside the supported set takes the
// default arm and resolves to the weighted average strategy.
func (r *CostStrategyRegistry) Resolve(method strategy.CostMethod) (strategy.CostingStrategy, error) {
	switch method {
	case strategy.CostMethodFIFO,
		strategy.CostMethodLIFO,
		strategy.CostMethodWeightedAverage,
		strategy.CostMethodStandard:
		return r.Get(method)
	default:
		return r.Get(strategy.DefaultCostMethod)
	}
}

// Methods returns the registered methods in canonical order
func (r *CostStrategyRegistry) Methods() []strategy.CostMethod {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := make([]strategy.CostMethod, 0, len(r.strategies))
	for _, method := range strategy.AllCostMethods() {
		if _, ok := r.strategies[method]; ok {
			methods = append(methods, method)
		}
	}
	return methods
}
