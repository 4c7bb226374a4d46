// Package engine wires a capture driver, a strategy pipeline and a
// pipeline context together into the runnable packet-processing loop:
// receive, run through the pipeline, reinject or drop every resulting
// packet, on repeat until Stop is called.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdpi-go/engine/pkg/capture"
	"github.com/gdpi-go/engine/pkg/config"
	"github.com/gdpi-go/engine/pkg/pipectx"
	"github.com/gdpi-go/engine/pkg/pipeline"
	"github.com/sirupsen/logrus"
)

// SweepInterval is how often the orchestrator evicts expired conntrack
// entries, matching the original engine's default cleanup cadence.
const SweepInterval = 30 * time.Second

// Orchestrator owns the capture driver, pipeline and context for one
// running engine instance and drives the receive/process/reinject loop.
type Orchestrator struct {
	Driver   capture.Driver
	Pipeline *pipeline.Pipeline
	Context  *pipectx.Context
	Log      logrus.FieldLogger

	filterExpr string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an Orchestrator from a parsed Config: constructs the
// strategy pipeline, the domain filter, and selects the platform
// capture driver.
func New(cfg config.Config, log logrus.FieldLogger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: invalid configuration: %w", err)
	}

	domainFilter, err := cfg.BuildDomainFilter()
	if err != nil {
		return nil, fmt.Errorf("engine: building domain filter: %w", err)
	}

	pl := pipeline.New()
	for _, s := range cfg.BuildStrategies(log) {
		pl.AddStrategy(s)
	}

	driver, err := capture.NewPlatformDriver()
	if err != nil {
		return nil, fmt.Errorf("engine: selecting capture driver: %w", err)
	}

	filterExpr := capture.FilterPresets{}.Full()
	if cfg.Strategies.QUICBlock.Enabled {
		filterExpr = capture.FilterPresets{}.WithQUIC()
	}

	return &Orchestrator{
		Driver:     driver,
		Pipeline:   pl,
		Context:    pipectx.NewWithFilter(domainFilter),
		Log:        log,
		filterExpr: filterExpr,
	}, nil
}

// Run opens the capture driver and processes packets until ctx is
// cancelled or Stop is called. Run blocks until the receive loop and
// sweep loop both exit.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.Driver.Open(o.filterExpr); err != nil {
		return fmt.Errorf("engine: opening capture driver: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(2)
	go o.sweepLoop(loopCtx)
	go o.receiveLoop(loopCtx)

	<-loopCtx.Done()
	// Closing the driver unblocks a Recv the receive loop may be parked in.
	err := o.Driver.Close()
	o.wg.Wait()
	return err
}

// Stop cancels the running loops; Run returns once they've drained.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
}

func (o *Orchestrator) sweepLoop(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Context.Sweep()
		}
	}
}

func (o *Orchestrator) receiveLoop(ctx context.Context) {
	defer o.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		captured, err := o.Driver.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if o.Log != nil {
				o.Log.WithError(err).Warn("capture driver recv failed")
			}
			continue
		}

		if err := o.handle(captured); err != nil && o.Log != nil {
			o.Log.WithError(err).Debug("packet handling failed")
		}
	}
}

func (o *Orchestrator) handle(captured capture.CapturedPacket) error {
	pkt, err := captured.Parse()
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	o.Context.RecordConnectionTTL(pkt)

	results := o.Pipeline.Process(pkt, o.Context)
	for _, out := range results {
		addr := captured.Address
		if out.IsFake {
			addr = addr.AsImpostor()
		}
		if err := o.Driver.Send(out.Bytes(), addr); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}
	return nil
}
