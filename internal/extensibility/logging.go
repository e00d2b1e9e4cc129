package extensibility

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/comalice/botix"
)

// LoggingHook logs before and after running inner.
func LoggingHook(name string, inner botix.Hook, l zerolog.Logger) botix.Hook {
	return botix.HookFunc(func() {
		l.Debug().Str("hook", name).Msg("running hook")
		start := time.Now()
		inner.Call()
		l.Debug().Str("hook", name).Dur("took", time.Since(start)).Msg("hook done")
	})
}

// LoggingPredicate logs every evaluation that returns true.
func LoggingPredicate(name string, inner botix.Predicate, l zerolog.Logger) botix.Predicate {
	return botix.PredicateFunc(func() bool {
		ok := inner.Call()
		if ok {
			l.Debug().Str("breaker", name).Msg("breaker tripped")
		}
		return ok
	})
}
