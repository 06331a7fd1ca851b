// Package notify delivers the "data changed" signal emitted after every
// successful mutation of the document.
package notify

import "context"

// EventDataChanged is the event name sent to listeners.
const EventDataChanged = "data-changed"

// Notifier receives a signal after the document has been persisted.
type Notifier interface {
	DataChanged(ctx context.Context)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context)

func (f NotifierFunc) DataChanged(ctx context.Context) { f(ctx) }

// Nop discards notifications.
var Nop Notifier = NotifierFunc(func(context.Context) {})

// Multi forwards each notification to every non-nil notifier in order.
func Multi(notifiers ...Notifier) Notifier {
	out := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return NotifierFunc(func(ctx context.Context) {
		for _, n := range out {
			n.DataChanged(ctx)
		}
	})
}
