package picker

import "github.com/goliatone/go-hitasforms/internal/subscription"

// Subscription releases a state listener. Close is idempotent.
type Subscription = subscription.Handle

// Subscribe registers fn to be called after every state transition. Listeners
// run outside the picker lock; release them with Close when the view that
// registered them goes away.
func (p *Picker) Subscribe(fn func(State)) *Subscription {
	return p.subs.Add(fn)
}

// Subscribers reports the number of live listeners.
func (p *Picker) Subscribers() int {
	return p.subs.Len()
}
