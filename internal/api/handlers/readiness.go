package handlers

import (
	"context"
	"time"
)

// PublicationCounter reports corpus size; a failing count means the store
// is unreachable.
type PublicationCounter interface {
	CountPublications() (int, error)
}

// MirrorPinger checks that the graph mirror answers queries.
type MirrorPinger interface {
	NodeCount(ctx context.Context) (int64, error)
}

// Readiness builds the /ready probe. The store must answer, and the
// mirror, when configured, must be reachable. A nil mirror is skipped.
func Readiness(store PublicationCounter, mirror MirrorPinger) func() error {
	return func() error {
		if _, err := store.CountPublications(); err != nil {
			return err
		}

		if mirror != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if _, err := mirror.NodeCount(ctx); err != nil {
				return err
			}
		}

		return nil
	}
}
