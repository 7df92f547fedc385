package decoder

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"jp2kd/internal/engine"
)

// Coordinator drives one engine handle for JPEG 2000 decoding. It is safe for
// concurrent use: operations are admitted from any goroutine and executed one
// at a time, in admission order, on a private worker goroutine.
//
// A Coordinator must be released with Release (or Close) to stop its worker.
type Coordinator struct {
	id     string
	cfg    Config
	engine engine.Engine
	state  stateCell
	worker *serialWorker

	// ctx bounds every engine call and is cancelled by Release.
	ctx    context.Context
	cancel context.CancelFunc

	hmu    sync.Mutex
	handle engine.Handle

	mu        sync.RWMutex
	log       zerolog.Logger
	publisher EventPublisher
	lastErr   string

	completed atomic.Uint64
	failed    atomic.Uint64
	cancelled atomic.Uint64
	startTime time.Time
}

// New returns an Uninitialized coordinator bound to eng. Unset limits in cfg
// take their defaults.
func New(eng engine.Engine, cfg Config) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		id:        uuid.NewString(),
		cfg:       cfg.withDefaults(),
		engine:    eng,
		worker:    newSerialWorker(),
		ctx:       ctx,
		cancel:    cancel,
		log:       zerolog.Nop(),
		publisher: noopPublisher{},
		startTime: time.Now(),
	}
	return c
}

// ID returns the coordinator's unique identifier.
func (c *Coordinator) ID() string { return c.id }

// Config returns the effective configuration.
func (c *Coordinator) Config() Config { return c.cfg }

// State returns the current lifecycle state.
func (c *Coordinator) State() State { return c.state.load() }

// Ready reports whether operations are currently admitted.
func (c *Coordinator) Ready() bool {
	s := c.state.load()
	return s == StateInitialized || s == StateProcessing
}

// SetLogger sets the base logger. It only takes effect when Config.LogLevel
// is set; the logger is then filtered to that level.
func (c *Coordinator) SetLogger(l zerolog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.LogLevel == nil {
		c.log = zerolog.Nop()
		return
	}
	c.log = l.Level(*c.cfg.LogLevel).With().Str("coordinator", c.id).Logger()
}

// SetEventPublisher sets the event sink. Nil restores the no-op default.
func (c *Coordinator) SetEventPublisher(p EventPublisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p == nil {
		p = noopPublisher{}
	}
	c.publisher = p
}

func (c *Coordinator) logger() *zerolog.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l := c.log
	return &l
}

func (c *Coordinator) publish(e Event) {
	c.mu.RLock()
	p := c.publisher
	c.mu.RUnlock()
	e.Coordinator = c.id
	p.Publish(e)
}

// measureTimes reports whether the engine should report stage timings.
func (c *Coordinator) measureTimes() bool { return c.cfg.LogLevel != nil }

func (c *Coordinator) handleOptions() engine.HandleOptions {
	opts := engine.HandleOptions{
		Name:           "jp2k-" + c.id,
		MaxResultBytes: c.cfg.MaxResultSizeBytes,
	}
	if c.cfg.InitialEngineMemoryBytes != nil {
		opts.InitialMemoryBytes = *c.cfg.InitialEngineMemoryBytes
	}
	return opts
}

// currentHandle returns the live handle, or nil before init and after release.
func (c *Coordinator) currentHandle() engine.Handle {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	return c.handle
}

// adopt installs h as the live handle unless a release started, in which case
// h is closed and adopt returns false.
func (c *Coordinator) adopt(h engine.Handle) bool {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	if c.state.load().shuttingDown() {
		c.closeHandle(h)
		return false
	}
	c.handle = h
	return true
}

// takeHandle detaches the live handle so that exactly one caller closes it.
func (c *Coordinator) takeHandle() engine.Handle {
	c.hmu.Lock()
	defer c.hmu.Unlock()
	h := c.handle
	c.handle = nil
	return h
}

func (c *Coordinator) closeHandle(h engine.Handle) error {
	if h == nil {
		return nil
	}
	err := h.Close(context.Background())
	if err != nil {
		l := c.logger()
		l.Warn().Err(err).Msg("engine handle close failed")
	}
	return err
}
