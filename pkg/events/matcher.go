package events

import "path"

// Matcher is a predicate over events. Matchers compose with And, Or and Not
// so collaborators can subscribe to compound conditions without writing
// bespoke callback logic.
type Matcher func(Event) bool

// MatchType matches events of exactly the given type. Wildcard matches all.
func MatchType(t Type) Matcher {
	return func(e Event) bool {
		return t == Wildcard || e.Type == t
	}
}

// MatchSource matches events whose source equals the given pattern, or
// matches it as a glob (path.Match syntax, e.g. "worker-*").
func MatchSource(pattern string) Matcher {
	return func(e Event) bool {
		if e.Source == pattern {
			return true
		}
		ok, err := path.Match(pattern, e.Source)
		return err == nil && ok
	}
}

// MatchData matches events whose payload satisfies the given predicate.
// A nil payload never matches.
func MatchData(pred func(any) bool) Matcher {
	return func(e Event) bool {
		return e.Data != nil && pred(e.Data)
	}
}

// And matches when every matcher matches.
func And(ms ...Matcher) Matcher {
	return func(e Event) bool {
		for _, m := range ms {
			if !m(e) {
				return false
			}
		}
		return true
	}
}

// Or matches when at least one matcher matches.
func Or(ms ...Matcher) Matcher {
	return func(e Event) bool {
		for _, m := range ms {
			if m(e) {
				return true
			}
		}
		return false
	}
}

// Not inverts a matcher.
func Not(m Matcher) Matcher {
	return func(e Event) bool {
		return !m(e)
	}
}

// OnMatch registers a synchronous wildcard listener that only fires when the
// matcher accepts the event.
func (b *Bus) OnMatch(m Matcher, fn Listener) Subscription {
	return b.On(Wildcard, func(e Event) {
		if m(e) {
			fn(e)
		}
	})
}
