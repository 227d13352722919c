package datasource

import (
	"context"
	"sync"

	"github.com/Reality2byte/nanoc/internal/site"
)

// Aggregate is the union of several sources. Identifiers must not collide
// across sources; Load reports collisions.
type Aggregate struct {
	Sources []Source
}

// Items implements Source.
func (a Aggregate) Items(ctx context.Context) ([]*site.Item, error) {
	var out []*site.Item
	for _, src := range a.Sources {
		items, err := src.Items(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

// Layouts implements Source.
func (a Aggregate) Layouts(ctx context.Context) ([]*site.Layout, error) {
	var out []*site.Layout
	for _, src := range a.Sources {
		layouts, err := src.Layouts(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, layouts...)
	}
	return out, nil
}

// Changes implements Watcher by merging the change streams of every
// source that has one.
func (a Aggregate) Changes(ctx context.Context) (<-chan Change, error) {
	ctx, cancel := context.WithCancel(ctx)
	var streams []<-chan Change
	for _, src := range a.Sources {
		w, ok := src.(Watcher)
		if !ok {
			continue
		}
		ch, err := w.Changes(ctx)
		if err != nil {
			cancel()
			return nil, err
		}
		streams = append(streams, ch)
	}

	out := make(chan Change)
	var wg sync.WaitGroup
	for _, ch := range streams {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range ch {
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		cancel()
		close(out)
	}()
	return out, nil
}
