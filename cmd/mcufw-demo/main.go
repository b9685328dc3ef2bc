// Command mcufw-demo wires the foundation components together on a
// hosted target: a wall-clock ticker drives the timer wheel, a timer
// samples a synthetic button, button events go out over the pub/sub
// bus, subscribers hand work to the job queue, and everything logs
// binary records into a ring-backed pipeline that is drained and
// pretty-printed on exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ehrlich-b/go-mcufw/apptimer"
	"github.com/ehrlich-b/go-mcufw/button"
	"github.com/ehrlich-b/go-mcufw/internal/trace"
	"github.com/ehrlich-b/go-mcufw/jobqueue"
	"github.com/ehrlich-b/go-mcufw/logging"
	"github.com/ehrlich-b/go-mcufw/metrics"
	"github.com/ehrlich-b/go-mcufw/pubsub"
)

func main() {
	var (
		duration = flag.Duration("duration", 3*time.Second, "How long to run the demo")
		logSize  = flag.Int("log-size", 4096, "Log storage size in bytes")
		verbose  = flag.Bool("v", false, "Verbose diagnostics")
	)
	flag.Parse()

	traceConfig := trace.DefaultConfig()
	if *verbose {
		traceConfig.Level = trace.LevelDebug
	}
	trace.SetDefault(trace.NewLogger(traceConfig))

	storage, err := logging.NewRingStorage(*logSize)
	if err != nil {
		log.Fatalf("log storage: %v", err)
	}
	pipeline, err := logging.New(storage)
	if err != nil {
		log.Fatalf("log pipeline: %v", err)
	}

	counters := metrics.New("button_events", "jobs_run", "ticks")

	pool, err := jobqueue.New(16)
	if err != nil {
		log.Fatalf("job queue: %v", err)
	}
	pool.SetAttr(jobqueue.Attr{MinThreads: 1, MaxThreads: 3})
	defer pool.Destroy()

	bus := pubsub.NewBus()
	if err := bus.Create("input/button"); err != nil {
		log.Fatalf("pubsub: %v", err)
	}

	jobs := make([]jobqueue.Job, 16)
	nextJob := 0
	if _, err := bus.Subscribe("input/+", func(ctx any, msg []byte) {
		pipeline.Info("button event: %s", msg)
		job := &jobs[nextJob%len(jobs)]
		nextJob++
		if err := jobqueue.InitJob(pool, job, func(ctx any) { counters.Increase("jobs_run") }, nil); err != nil {
			trace.Warn("job slot still busy", "err", jobqueue.StringifyError(err))
			return
		}
		if err := pool.Schedule(job); err != nil {
			trace.Warn("job submission failed", "err", jobqueue.StringifyError(err))
		}
	}, nil); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	// synthetic input: toggles slowly enough to debounce
	var level atomic.Uint32
	btn, err := button.New(
		func(ctx any) button.Level { return button.Level(level.Load()) },
		nil,
		func(b *button.Button, ev button.State, clicks, repeats uint16, ctx any) {
			counters.Increase("button_events")
			bus.Publish("input/button", []byte(ev.String()))
		},
		nil,
	)
	if err != nil {
		log.Fatalf("button: %v", err)
	}

	wheel := apptimer.New(nil)
	sampler, _ := wheel.NewTimer(true, func(ctx any) {
		counters.Increase("ticks")
		btn.StepDelta(10)
	})
	wheel.Start(sampler, 10, nil) // 10ms sampling tick

	toggler, _ := wheel.NewTimer(true, func(ctx any) {
		level.Store(level.Load() ^ 1)
	})
	wheel.Start(toggler, 250, nil)

	ticker, err := apptimer.NewTicker(wheel, time.Millisecond)
	if err != nil {
		log.Fatalf("ticker: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	fmt.Printf("running for %s (interrupt to stop)...\n", *duration)
	ticker.Run(ctx)
	wheel.Stop(sampler)
	wheel.Stop(toggler)

	fmt.Printf("\ncaptured %d log records:\n", pipeline.Count())
	buf := make([]byte, logging.RecordMaxSize)
	for pipeline.Count() > 0 {
		n := pipeline.Read(buf)
		if n == 0 {
			break
		}
		line, err := logging.Stringify(buf[:n])
		if err != nil {
			fmt.Printf("  <corrupt record: %v>\n", err)
			continue
		}
		fmt.Printf("  %s\n", line)
	}

	fmt.Println("\ncounters:")
	counters.Iterate(func(key metrics.Key, value int32) {
		fmt.Printf("  %-14s %d\n", key, value)
	})
}
