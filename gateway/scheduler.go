package gateway

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var workItemsAdded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_scheduler_items_added_total",
	Help: "Number of events added to the keyed scheduler",
})

var workItemsProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_scheduler_items_processed_total",
	Help: "Number of events processed by the keyed scheduler",
})

// Scheduler runs event handling on a fixed number of workers while keeping a
// total order per community: events for one community are handled one at a
// time in arrival order, events for different communities interleave freely.
type Scheduler struct {
	maxConcurrency int

	do func(context.Context, *Event) error

	feeder chan *schedulerTask
	out    chan struct{}

	lk     sync.Mutex
	active map[string][]*schedulerTask

	log *slog.Logger
}

type schedulerTask struct {
	community string
	evt       *Event
	control   string
}

func NewScheduler(maxConcurrency int, logger *slog.Logger, do func(context.Context, *Event) error) *Scheduler {
	s := &Scheduler{
		maxConcurrency: maxConcurrency,
		do:             do,
		feeder:         make(chan *schedulerTask),
		out:            make(chan struct{}),
		active:         make(map[string][]*schedulerTask),
		log:            logger.With("system", "keyed-scheduler"),
	}
	for i := 0; i < maxConcurrency; i++ {
		go s.worker()
	}
	return s
}

func (s *Scheduler) Shutdown() {
	for i := 0; i < s.maxConcurrency; i++ {
		s.feeder <- &schedulerTask{control: "stop"}
	}
	close(s.feeder)
	for i := 0; i < s.maxConcurrency; i++ {
		<-s.out
	}
	s.log.Info("keyed scheduler shutdown complete")
}

// AddWork enqueues an event. If the event's community is already being worked
// on, the event is parked behind it; otherwise it goes straight to a worker.
func (s *Scheduler) AddWork(ctx context.Context, evt *Event) error {
	workItemsAdded.Inc()
	t := &schedulerTask{community: evt.CommunityID, evt: evt}

	s.lk.Lock()
	a, ok := s.active[evt.CommunityID]
	if ok {
		s.active[evt.CommunityID] = append(a, t)
		s.lk.Unlock()
		return nil
	}
	s.active[evt.CommunityID] = []*schedulerTask{}
	s.lk.Unlock()

	select {
	case s.feeder <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) worker() {
	for work := range s.feeder {
		for work != nil {
			if work.control == "stop" {
				s.out <- struct{}{}
				return
			}

			if err := s.do(context.TODO(), work.evt); err != nil {
				s.log.Error("event handler failed", "community", work.community, "kind", work.evt.Kind, "err", err)
			}
			workItemsProcessed.Inc()

			s.lk.Lock()
			rem, ok := s.active[work.community]
			if !ok {
				s.log.Error("active entry missing for in-flight community", "community", work.community)
			}
			if len(rem) == 0 {
				delete(s.active, work.community)
				work = nil
			} else {
				work = rem[0]
				s.active[work.community] = rem[1:]
			}
			s.lk.Unlock()
		}
	}
}
