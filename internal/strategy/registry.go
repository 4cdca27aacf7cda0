package strategy

import (
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/core"
	"go.uber.org/zap"
)

// Factory builds a fresh Decider from params. Every call must return a new
// instance with its own state.
type Factory func(params map[string]any) (backtest.Decider, error)

// Definition describes a registered decision strategy
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Defaults    map[string]any `json:"defaults"`
	New         Factory        `json:"-"`
}

// Registry manages strategy definitions
type Registry struct {
	mu     sync.RWMutex
	defs   map[string]Definition
	logger *zap.Logger
}

// NewRegistry creates a new strategy registry
func NewRegistry(logger ...*zap.Logger) *Registry {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Registry{
		defs:   make(map[string]Definition),
		logger: l,
	}
}

// Register adds a definition, replacing any existing one with the same name
func (r *Registry) Register(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Name] = def
}

// Get retrieves a definition by name
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	return d, ok
}

// List returns all definitions sorted by name
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// New builds a fresh decider for the named strategy. params override the
// definition's defaults key by key.
func (r *Registry) New(name string, params map[string]any) (backtest.Decider, error) {
	def, ok := r.Get(name)
	if !ok {
		return nil, core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("unknown strategy %q", name))
	}

	merged := make(map[string]any, len(def.Defaults)+len(params))
	maps.Copy(merged, def.Defaults)
	maps.Copy(merged, params)

	d, err := def.New(merged)
	if err != nil {
		r.logger.Warn("strategy construction failed",
			zap.String("strategy", name),
			zap.Error(err),
		)
		return nil, err
	}
	return d, nil
}

// DecodeParams decodes params into out, accepting string forms of numbers
// and rejecting unknown keys.
func DecodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	if err := dec.Decode(params); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	return nil
}
