package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"jp2kd/internal/common/fsutil"
	"jp2kd/internal/config"
	"jp2kd/internal/decoder"
	"jp2kd/internal/engine"
)

// newCoordinator loads the engine module named by cfg and returns an
// initialized coordinator. The caller releases it.
func newCoordinator(ctx context.Context, cfg config.Config, pub decoder.EventPublisher) (*decoder.Coordinator, error) {
	dc, err := cfg.DecoderConfig()
	if err != nil {
		return nil, err
	}
	limit := dc.MaxEngineMemoryBytes
	if limit <= 0 {
		limit = decoder.DefaultMaxEngineMemoryBytes
	}
	eng, err := engine.LoadWasmEngine(cfg.EngineModule, limit)
	if err != nil {
		return nil, fmt.Errorf("load engine module: %w", err)
	}
	c := decoder.New(eng, dc)
	c.SetLogger(log.Logger.With().Str("component", "decoder").Logger())
	if pub != nil {
		c.SetEventPublisher(pub)
	}
	if err := c.Init(ctx); err != nil {
		_ = c.Release()
		return nil, fmt.Errorf("init decoder: %w", err)
	}
	return c, nil
}

// openSession starts a coordinator for one CLI command. finish releases it
// and logs the events the session produced at debug level.
func openSession(ctx context.Context, cfg config.Config) (c *decoder.Coordinator, finish func(), err error) {
	pub := decoder.NewMemoryPublisher()
	c, err = newCoordinator(ctx, cfg, pub)
	if err != nil {
		logSession(pub)
		return nil, nil, err
	}
	return c, func() {
		_ = c.Release()
		logSession(pub)
	}, nil
}

func logSession(pub *decoder.MemoryPublisher) {
	var failed int
	for _, e := range pub.Events() {
		if e.Name == decoder.EventOpFailed || e.Name == decoder.EventInitFailed {
			failed++
		}
	}
	log.Debug().Strs("events", pub.Names()).Int("failed", failed).Msg("decoder session")
}

func readInput(path string) ([]byte, error) {
	b, err := fsutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return b, nil
}
