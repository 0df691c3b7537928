package reservations

import (
	"context"
	"log"
	"time"
)

// Reaper closes pending reservations whose payment window lapsed. It is
// the only writer of the EXPIRED status.
type Reaper struct {
	service Service
	config  *ReaperConfig
	done    chan struct{}
}

// ReaperConfig contains configuration for the expiry job
type ReaperConfig struct {
	Interval time.Duration
}

// DefaultReaperConfig returns default reaper configuration
func DefaultReaperConfig() *ReaperConfig {
	return &ReaperConfig{
		Interval: 1 * time.Minute,
	}
}

// NewReaper creates a new expiry reaper
func NewReaper(service Service, config *ReaperConfig) *Reaper {
	if config == nil {
		config = DefaultReaperConfig()
	}

	return &Reaper{
		service: service,
		config:  config,
		done:    make(chan struct{}),
	}
}

// Start starts the background expiry loop
func (r *Reaper) Start(ctx context.Context) {
	log.Printf("Starting reservation reaper with %v interval", r.config.Interval)
	go r.run(ctx)
}

// Stop stops the background expiry loop
func (r *Reaper) Stop() {
	log.Println("Stopping reservation reaper...")
	close(r.done)
}

func (r *Reaper) run(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep(ctx)
		case <-r.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	expired, err := r.service.ExpireStale(ctx)
	if err != nil {
		log.Printf("Error expiring stale reservations: %v", err)
		return
	}

	if expired > 0 {
		log.Printf("Expired %d stale reservations", expired)
	}
}
