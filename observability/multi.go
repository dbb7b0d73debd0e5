package observability

import "context"

type multiObserver []Observer

func (m multiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m {
		obs.OnEvent(ctx, event)
	}
}

// Multi combines observers into one that forwards every event to each of
// them in order. Nested combinations are flattened; nil and NoOpObserver
// entries are dropped. With nothing left Multi returns NoOpObserver, and a
// single remaining observer is returned as is.
func Multi(observers ...Observer) Observer {
	var flat multiObserver
	for _, obs := range observers {
		switch o := obs.(type) {
		case nil, NoOpObserver:
		case multiObserver:
			flat = append(flat, o...)
		default:
			flat = append(flat, o)
		}
	}

	switch len(flat) {
	case 0:
		return NoOpObserver{}
	case 1:
		return flat[0]
	default:
		return flat
	}
}
