package botix

// Hook is a side effect run when a state is entered or exited.
type Hook interface {
	Call()
}

// HookFunc adapts a plain function to Hook.
type HookFunc func()

func (f HookFunc) Call() { f() }

// Predicate is polled during a timed wait; returning true ends the wait.
type Predicate interface {
	Call() bool
}

// PredicateFunc adapts a plain function to Predicate.
type PredicateFunc func() bool

func (f PredicateFunc) Call() bool { return f() }

// Any returns a predicate that reports true as soon as one of ps does.
// Nil entries are skipped. Evaluation short-circuits in argument order.
func Any(ps ...Predicate) Predicate {
	live := make([]Predicate, 0, len(ps))
	for _, p := range ps {
		if p != nil {
			live = append(live, p)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return PredicateFunc(func() bool {
		for _, p := range live {
			if p.Call() {
				return true
			}
		}
		return false
	})
}

func runHooks(hooks []Hook) {
	for _, h := range hooks {
		h.Call()
	}
}
