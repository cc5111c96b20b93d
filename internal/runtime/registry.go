package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"arbiter/internal/domain/execution"
)

// ErrUnsupportedLanguage reports a job whose language has no registered
// module. The coordinator maps it to a SYSTEM_ERROR verdict without ever
// touching the sandbox.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Registry wires language modules into a single Engine implementation.
type Registry struct {
	mu      sync.RWMutex
	modules map[execution.Language]Module
}

// NewRegistry constructs a registry from the supplied modules.
func NewRegistry(mods ...Module) (*Registry, error) {
	reg := &Registry{
		modules: make(map[execution.Language]Module, len(mods)),
	}

	for _, module := range mods {
		if module == nil {
			return nil, fmt.Errorf("runtime module cannot be nil")
		}

		lang := module.Language()
		if !execution.Known(lang) {
			return nil, fmt.Errorf("runtime module for unknown language %q", lang)
		}
		if _, exists := reg.modules[lang]; exists {
			return nil, fmt.Errorf("duplicate runtime module for language %q", lang)
		}

		reg.modules[lang] = module
	}

	if len(reg.modules) == 0 {
		return nil, fmt.Errorf("at least one runtime module must be registered")
	}

	return reg, nil
}

// Languages lists the languages this registry can execute, in the canonical
// order, for worker registration.
func (r *Registry) Languages() []execution.Language {
	r.mu.RLock()
	defer r.mu.RUnlock()

	langs := make([]execution.Language, 0, len(r.modules))
	for _, lang := range execution.Languages() {
		if _, ok := r.modules[lang]; ok {
			langs = append(langs, lang)
		}
	}
	return langs
}

// Prepare dispatches the job to the module responsible for its language.
func (r *Registry) Prepare(ctx context.Context, job execution.Job) (PreparedProgram, *execution.Outcome, error) {
	module, err := r.moduleFor(job.Language)
	if err != nil {
		return nil, nil, err
	}
	return module.Prepare(ctx, job)
}

// Close releases resources held by each module.
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for lang, module := range r.modules {
		if err := module.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", lang, err))
		}
	}

	return errors.Join(errs...)
}

func (r *Registry) moduleFor(lang execution.Language) (Module, error) {
	r.mu.RLock()
	module, ok := r.modules[lang]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	return module, nil
}
