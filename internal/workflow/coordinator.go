package workflow

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"crazypanel/internal/logging"
	"crazypanel/internal/notifications"
	"crazypanel/internal/poster"
	"crazypanel/internal/stage"
)

// Backend is the transport surface the coordinator and its stages need.
// *poster.Client satisfies it.
type Backend interface {
	Health(ctx context.Context) (poster.HealthStatus, error)
	stage.Uploader
	stage.Runner
	stage.Scheduler
}

// Coordinator wires the three stages around one artifact reference.
type Coordinator struct {
	client   Backend
	logger   *slog.Logger
	notifier notifications.Service

	upload   *stage.UploadStage
	run      *stage.RunStage
	schedule *stage.ScheduleStage

	probeOnce sync.Once

	mu          sync.RWMutex
	online      bool
	probed      bool
	reference   string
	subscribers []func(string)

	wg sync.WaitGroup
}

// Option configures optional Coordinator behavior.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	notifier       notifications.Service
	defaultAccount string
	reference      string
}

// WithLogger sets the coordinator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithNotifier sets the ntfy notifier used after successful run and schedule
// submissions.
func WithNotifier(notifier notifications.Service) Option {
	return func(o *options) { o.notifier = notifier }
}

// WithDefaultAccount preselects the account in the Run and Schedule stages.
func WithDefaultAccount(account string) Option {
	return func(o *options) { o.defaultAccount = account }
}

// WithReference seeds the artifact reference, for CLI runs against an
// artifact uploaded earlier.
func WithReference(reference string) Option {
	return func(o *options) { o.reference = reference }
}

// New constructs a Coordinator and its stages.
func New(client Backend, opts ...Option) *Coordinator {
	o := options{defaultAccount: "Account_001"}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.notifier == nil {
		o.notifier = notifications.NewService(nil)
	}
	c := &Coordinator{
		client:    client,
		logger:    logging.NewComponentLogger(o.logger, "workflow"),
		notifier:  o.notifier,
		reference: o.reference,
	}
	stageOpts := []stage.Option{stage.WithObserver(c), stage.WithLogger(o.logger)}
	c.upload = stage.NewUpload(client, c.publish, stageOpts...)
	c.run = stage.NewRun(client, c, o.defaultAccount, stageOpts...)
	c.schedule = stage.NewSchedule(client, c, o.defaultAccount, stageOpts...)
	return c
}

// Upload returns the Upload stage.
func (c *Coordinator) Upload() *stage.UploadStage { return c.upload }

// Run returns the Run Now stage.
func (c *Coordinator) Run() *stage.RunStage { return c.run }

// Schedule returns the Schedule stage.
func (c *Coordinator) Schedule() *stage.ScheduleStage { return c.schedule }

// Mount performs the single health probe. Later calls return the cached
// status without touching the network.
func (c *Coordinator) Mount(ctx context.Context) bool {
	c.probeOnce.Do(func() {
		_, err := c.client.Health(ctx)
		c.mu.Lock()
		c.online, c.probed = err == nil, true
		c.mu.Unlock()
		if err != nil {
			c.logger.Warn("backend health probe failed; panel marked offline",
				logging.Error(err),
				logging.String("detail", requestDetail(err)),
			)
			return
		}
		c.logger.Info("backend online")
	})
	return c.Online()
}

// Online reports the cached connectivity status. It is false until Mount
// has run.
func (c *Coordinator) Online() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online
}

// Reference returns the current artifact reference.
func (c *Coordinator) Reference() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reference, c.reference != ""
}

// Subscribe registers fn to be called with every new artifact reference.
func (c *Coordinator) Subscribe(fn func(string)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// publish replaces the reference wholesale and fans it out to subscribers.
func (c *Coordinator) publish(ctx context.Context, reference string) {
	c.mu.Lock()
	previous := c.reference
	c.reference = reference
	subscribers := slices.Clone(c.subscribers)
	c.mu.Unlock()

	logger := logging.WithContext(ctx, c.logger)
	if previous != "" && previous != reference {
		logger.Info("artifact reference replaced",
			logging.String(logging.FieldReference, reference),
			logging.String("previous", previous),
		)
	} else {
		logger.Info("artifact reference set", logging.String(logging.FieldReference, reference))
	}
	for _, fn := range subscribers {
		fn(reference)
	}
}
