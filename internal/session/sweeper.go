package session

import (
	"context"
	"log"
	"time"
)

// Locker serializes sweeps across server instances. db.MongoDB implements it.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) bool
	Unlock(ctx context.Context, name string)
}

const sweepLock = "stalled_game_sweep"

// Sweeper periodically plays engine replies that never happened, e.g. when a
// request was cancelled mid-search or the server restarted.
type Sweeper struct {
	service   *Service
	locker    Locker
	stopCh    chan struct{}
	interval  time.Duration
	threshold time.Duration
}

func NewSweeper(service *Service, interval, threshold time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if threshold <= 0 {
		threshold = 30 * time.Second
	}
	return &Sweeper{
		service:   service,
		stopCh:    make(chan struct{}),
		interval:  interval,
		threshold: threshold,
	}
}

// SetLocker makes each pass run only while holding l's sweep lock.
func (s *Sweeper) SetLocker(l Locker) {
	s.locker = l
}

// Start begins the periodic loop in a background goroutine.
func (s *Sweeper) Start() {
	go s.run()
	log.Printf("Stalled game sweeper started (interval: %s, threshold: %s)", s.interval, s.threshold)
}

// Stop signals the loop to exit.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	log.Println("Stalled game sweeper stopped")
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.pass()
		}
	}
}

func (s *Sweeper) pass() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if s.locker != nil {
		if !s.locker.TryLock(ctx, sweepLock, s.interval) {
			return
		}
		defer s.locker.Unlock(ctx, sweepLock)
	}

	n, err := s.service.ResumeStalled(ctx, s.service.now().Add(-s.threshold))
	if err != nil {
		log.Printf("Stalled game sweeper: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Stalled game sweeper: resumed %d game(s)", n)
	}
}
