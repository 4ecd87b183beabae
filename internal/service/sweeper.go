package service

import (
	"context"
	"log"
	"time"
)

// ExpirySweeper drives SweepExpired on a fixed interval. The sweep is the
// only thing that enforces confirmation windows; accepts never block on
// a timer.
type ExpirySweeper struct {
	dispatcher ContractorDispatcher
	interval   time.Duration
}

func NewExpirySweeper(dispatcher ContractorDispatcher, interval time.Duration) *ExpirySweeper {
	return &ExpirySweeper{dispatcher: dispatcher, interval: interval}
}

// Run blocks until ctx is cancelled.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			expired, err := s.dispatcher.SweepExpired(ctx, now)
			if err != nil {
				log.Printf("expiry sweep failed: %v", err)
				continue
			}
			if expired > 0 {
				log.Printf("expiry sweep: %d confirmation requests expired", expired)
			}
		}
	}
}
