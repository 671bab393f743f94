package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"skywatch/internal/basestation"
	"skywatch/internal/reference"
	"skywatch/internal/sbs"
	"skywatch/internal/scheduler"
	"skywatch/internal/tasks"
	"skywatch/internal/tracker"
)

// Daemon wires the feed client, the aircraft tracker, the reference store
// and the sweep scheduler together and owns their lifetimes.
type Daemon struct {
	ctx        context.Context
	cancel     context.CancelFunc
	scheduler  *scheduler.Scheduler
	tracker    *tracker.Tracker
	reference  *reference.Store
	client     *basestation.Client
	messages   chan *sbs.Message
	streamDone chan struct{}
	ingestDone chan struct{}
}

// Config holds daemon configuration
type Config struct {
	Addr           string        // feed address (e.g., "localhost:30003")
	StaleThreshold time.Duration // drop aircraft silent for at least this long
	SweepInterval  time.Duration // eviction sweep period
	ReferencePath  string        // aircraft reference database, optional
	WatchReference bool          // reload the reference database on file change
}

// New creates a new daemon instance. A missing or unreadable reference
// database degrades to un-enriched aircraft; it never prevents ingestion.
func New(cfg Config) (*Daemon, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("Addr is required")
	}
	if cfg.StaleThreshold <= 0 {
		cfg.StaleThreshold = 60 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	ref := reference.NewStore()
	if cfg.ReferencePath != "" {
		if err := ref.Load(cfg.ReferencePath); err != nil {
			slog.Warn("Reference database unavailable, aircraft will not be enriched",
				"path", cfg.ReferencePath, "error", err)
		}
		if cfg.WatchReference {
			if err := ref.Watch(ctx, cfg.ReferencePath); err != nil {
				slog.Warn("Reference database watch unavailable", "error", err)
			}
		}
	}

	trk := tracker.New(ref, cfg.StaleThreshold)

	sched := scheduler.New(ctx)
	sched.AddTask(tasks.NewSweep(trk, cfg.SweepInterval))

	return &Daemon{
		ctx:        ctx,
		cancel:     cancel,
		scheduler:  sched,
		tracker:    trk,
		reference:  ref,
		client:     basestation.NewClient(cfg.Addr),
		messages:   make(chan *sbs.Message, 1000),
		streamDone: make(chan struct{}),
		ingestDone: make(chan struct{}),
	}, nil
}

// Start launches the receive loop, the ingest loop and the sweep scheduler.
func (d *Daemon) Start() error {
	slog.Info("Starting daemon")

	go func() {
		defer close(d.streamDone)
		if err := d.client.StreamMessages(d.ctx, d.messages); err != nil {
			if d.ctx.Err() == nil { // Only log if not cancelled
				slog.Error("Feed streamer stopped", "error", err)
			}
		}
		close(d.messages)
	}()

	go func() {
		defer close(d.ingestDone)
		_ = tasks.NewIngest(d.tracker, d.messages).Start(d.ctx)
	}()

	d.scheduler.Start()

	slog.Info("Daemon started successfully")
	return nil
}

// Stop gracefully stops the daemon. After it returns no goroutine touches
// the tracker again.
func (d *Daemon) Stop() error {
	slog.Info("Stopping daemon")
	d.cancel()

	if err := d.client.Close(); err != nil {
		slog.Error("Error closing feed client", "error", err)
	}

	<-d.streamDone
	<-d.ingestDone
	d.scheduler.Stop()

	slog.Info("Daemon stopped")
	return nil
}

// Tracker exposes the live aircraft table for snapshot consumers.
func (d *Daemon) Tracker() *tracker.Tracker {
	return d.tracker
}

// Reference exposes the loaded reference store.
func (d *Daemon) Reference() *reference.Store {
	return d.reference
}

// FeedStatus reports the current connection state of the feed client.
func (d *Daemon) FeedStatus() basestation.Status {
	return d.client.Status()
}
