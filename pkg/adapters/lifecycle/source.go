// Package lifecycle exposes entry change events as a lifecycle.Source so
// that a supervised application can react to edits alongside its other
// signals.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/ortholine/inlay/pkg/core"
)

type entrySource struct {
	events <-chan core.Event
	out    chan lifecycle.Event
}

// NewSource wraps a core event channel, usually the one returned by
// core.Service.Watch. The source's channel closes when events closes or the
// context given to Start ends.
func NewSource(events <-chan core.Event) lifecycle.Source {
	return &entrySource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
}

func (s *entrySource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *entrySource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				// core.Event satisfies lifecycle.Event through String.
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
