package extensibility

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/comalice/botix"
)

var (
	ErrUnknownHook = errors.New("hook not registered")
	ErrNoStore     = errors.New("expression breaker needs a value store")
)

// Registry maps blueprint names to hooks and breakers. Breaker references
// that are not registered names are parsed as expressions over the store.
type Registry struct {
	mu         sync.RWMutex
	hooks      map[string]botix.Hook
	predicates map[string]botix.Predicate
	store      Store
	logHooks   bool
	log        zerolog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithStore sets the store expression breakers read from.
func WithStore(s Store) Option {
	return func(r *Registry) { r.store = s }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithHookLogging wraps every resolved hook in LoggingHook.
func WithHookLogging() Option {
	return func(r *Registry) { r.logHooks = true }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		hooks:      make(map[string]botix.Hook),
		predicates: make(map[string]botix.Predicate),
		log:        log.Logger.With().Str("component", "extensibility").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterHook stores h under name, replacing any previous hook.
func (r *Registry) RegisterHook(name string, h botix.Hook) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = h
	return r
}

// RegisterPredicate stores p under name, replacing any previous predicate.
func (r *Registry) RegisterPredicate(name string, p botix.Predicate) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predicates[name] = p
	return r
}

// Hook resolves a registered hook.
func (r *Registry) Hook(name string) (botix.Hook, error) {
	r.mu.RLock()
	h, ok := r.hooks[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownHook)
	}
	if r.logHooks {
		h = LoggingHook(name, h, r.log)
	}
	return h, nil
}

// Breaker resolves ref to a registered predicate, or parses it as an
// expression bound to the store. Refs joined with "|" trip when any of
// them does.
func (r *Registry) Breaker(ref string) (botix.Predicate, error) {
	if strings.Contains(ref, "|") {
		var ps []botix.Predicate
		for _, part := range strings.Split(ref, "|") {
			p, err := r.Breaker(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			ps = append(ps, p)
		}
		return botix.Any(ps...), nil
	}

	r.mu.RLock()
	p, ok := r.predicates[ref]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	expr, err := ParseExpression(ref)
	if err != nil {
		return nil, err
	}
	if r.store == nil {
		return nil, fmt.Errorf("%q: %w", ref, ErrNoStore)
	}
	r.log.Debug().Str("expr", expr.String()).Msg("compiled breaker expression")
	return expr.Predicate(r.store), nil
}

// Names lists the registered hook and predicate names, sorted.
func (r *Registry) Names() (hooks, predicates []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for n := range r.hooks {
		hooks = append(hooks, n)
	}
	for n := range r.predicates {
		predicates = append(predicates, n)
	}
	sort.Strings(hooks)
	sort.Strings(predicates)
	return hooks, predicates
}
