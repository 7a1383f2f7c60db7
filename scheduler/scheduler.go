package scheduler

import (
	"context"

	"bubbler/service"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler drives the periodic economy events: random drops, snapshot
// exports and pool redistribution.
type Scheduler struct {
	cron           *cron.Cron
	dropService    service.DropService
	exportSnapshot func()
}

// New wires the cron jobs. Start must be called to begin execution.
func New(dropService service.DropService, exportSnapshot func()) (*Scheduler, error) {
	cronService := cron.New(cron.WithSeconds())
	s := &Scheduler{
		cron:           cronService,
		dropService:    dropService,
		exportSnapshot: exportSnapshot,
	}

	// Safety-net snapshot export every minute; mutations already export
	// on their own
	if _, err := cronService.AddFunc("30 * * * * *", func() {
		s.exportSnapshot()
	}); err != nil {
		return nil, err
	}

	// Roll for a bubble drop every ten minutes
	if _, err := cronService.AddFunc("0 */10 * * * *", func() {
		s.dropService.MaybeDischarge(context.Background())
	}); err != nil {
		return nil, err
	}

	// Empty the pool back into the population once a day
	if _, err := cronService.AddFunc("0 0 12 * * *", func() {
		if err := s.dropService.Redistribute(context.Background()); err != nil {
			log.WithField("error", err).Error("Redistribution failed")
		}
	}); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info("Scheduler started")
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Scheduler stopped")
}
