// Package realtime provides a tick-based deterministic runtime for hsmx machines.
//
// Instead of processing events as they arrive, the runtime batches them and processes
// each batch at a fixed tick boundary:
//   - events within a tick are ordered by priority (higher first), then by submission
//     sequence
//   - every event runs to completion through core.Machine.ProcessEvent before the next
//   - orthogonal regions are handled by the machine itself, sequentially, in
//     declaration order
//
// Given the same sequence of Send calls per tick the machine always executes the same
// way, regardless of goroutine scheduling. Recorded tick batches can be replayed
// against a fresh machine with Replay.
//
// # Example Usage
//
//	m, _ := core.NewMachine(config)
//	rt := realtime.NewRuntime(m, realtime.Config{
//		TickRate: 16667 * time.Microsecond, // 60 FPS
//	})
//	rt.Start(ctx)
//	rt.Send(primitives.NewEvent("jump", nil))
//
// Latency is bounded by the tick rate, so this runtime suits game loops, fixed
// time-step simulations and reproducible test scenarios rather than request handling.
package realtime
