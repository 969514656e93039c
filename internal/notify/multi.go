package notify

import (
	"context"
	"errors"
	"fmt"
)

type namedNotifier struct {
	name string
	n    Notifier
}

// Multi fans a message out to every channel. It succeeds when at least one
// channel delivered; otherwise it returns all channel errors joined.
type Multi struct {
	channels []namedNotifier
}

func NewMulti() *Multi {
	return &Multi{}
}

func (m *Multi) Add(name string, n Notifier) *Multi {
	if n != nil {
		m.channels = append(m.channels, namedNotifier{name: name, n: n})
	}
	return m
}

func (m *Multi) Len() int {
	return len(m.channels)
}

func (m *Multi) Send(ctx context.Context, msg Message) error {
	if len(m.channels) == 0 {
		return errors.New("no notification channels configured")
	}

	var errs []error
	delivered := false
	for _, ch := range m.channels {
		if err := ch.n.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch.name, err))
			continue
		}
		delivered = true
	}

	if delivered {
		return nil
	}
	return errors.Join(errs...)
}
