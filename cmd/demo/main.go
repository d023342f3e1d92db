package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/comalice/hsmx/internal/core"
	"github.com/comalice/hsmx/internal/extensibility"
	"github.com/comalice/hsmx/internal/logging"
	"github.com/comalice/hsmx/internal/primitives"
	"github.com/comalice/hsmx/internal/production"
)

const cycles = 12

func main() {
	mb := primitives.NewMachineBuilder("traffic-light")
	traffic := mb.Compound("traffic").WithHistory(primitives.ShallowHistory)
	traffic.Atomic("red").On("TIMER", "green")
	traffic.Atomic("green").On("TIMER", "yellow")
	traffic.Atomic("yellow").On("TIMER", "red")
	traffic.On("FAULT", "blinking")
	mb.Atomic("blinking").
		Discard("TIMER").
		OnHistory("REPAIR", "traffic", primitives.ShallowHistory)
	config := mb.MustBuild()

	logger := logging.New(slog.LevelWarn)

	dir := filepath.Join(os.TempDir(), "hsmx-demo")
	persister, err := production.NewJSONPersister(dir)
	if err != nil {
		panic(err)
	}

	published := make(chan production.PublishedEvent, 100)
	m, err := core.NewMachine(config,
		core.WithInstanceID("crossing-1"),
		core.WithLogger(logger),
	)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := core.NewRunner(m,
		core.WithPersister(persister),
		core.WithPublisher(production.NewChannelPublisher(published)),
		core.WithEventSource(extensibility.NewTimerEventSource(ctx, "TIMER", nil, 500*time.Millisecond)),
		core.WithRunnerLogger(logger),
	)
	if err := runner.Start(ctx); err != nil {
		panic(err)
	}
	defer runner.Stop()
	fmt.Printf("snapshots in %s\n", dir)

	var viz production.DOTVisualizer
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for n := 1; n <= cycles; n++ {
		select {
		case pub := <-published:
			fmt.Printf("--- cycle %d: %s -> %v (%s)\n", n, pub.Event.Type, pub.Metadata.Active, pub.Metadata.Outcome)
		case <-sig:
			fmt.Println("shutting down")
			return
		}

		switch n {
		case 5:
			if _, err := runner.Dispatch(ctx, primitives.NewEvent("FAULT", nil)); err != nil {
				fmt.Printf("fault: %v\n", err)
			}
		case 8:
			if _, err := runner.Dispatch(ctx, primitives.NewEvent("REPAIR", nil)); err != nil {
				fmt.Printf("repair: %v\n", err)
			}
		}
	}

	snap, err := runner.Snapshot(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Print(viz.ExportDOT(config, snap.Active))
	fmt.Println("demo complete")
}
