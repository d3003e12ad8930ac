package reservation

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically reclaims expired holds.
type Sweeper struct {
	Manager  *Manager
	Interval time.Duration
}

func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Printf("reservation sweeper stopped")
				return
			case <-ticker.C:
				s.Manager.SweepExpired(ctx, time.Now().UTC())
			}
		}
	}()
}
