package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/niedzielski/dkernel/internal/logging"
	"github.com/niedzielski/dkernel/kernel"
	"github.com/niedzielski/dkernel/platform"
)

func main() {
	var (
		verbose     = flag.Bool("v", false, "Verbose output")
		quantum     = flag.Duration("quantum", 10*time.Millisecond, "Scheduler tick period")
		blinkShare  = flag.Uint("blink-share", 2, "Quantum share for the blinker task")
		pollShare   = flag.Uint("poll-share", 1, "Quantum share for the controller-poller task")
		cpuAffinity = flag.Int("cpu", -1, "Pin the clock goroutine to this CPU, -1 for no pin")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := platform.NewTickerClock(logger)
	clock.CPU = *cpuAffinity

	blinkTicks := 0
	reader := bufio.NewReader(os.Stdin)

	var k *kernel.Kernel
	k, err := kernel.InitKernel(kernel.Config{
		MaxTasks: kernel.DefaultMaxTasks,
		Quantum:  *quantum,
		Clock:    clock,
		Logger:   logger,
		RunContext: ctx,
		PostBootHook: func() error {
			return startControllerPoller(k, logger, reader, uint32(*pollShare))
		},
	})
	if err != nil {
		logger.Error("failed to initialize kernel", "error", err)
		os.Exit(1)
	}

	blinkID, err := k.CreateTask(func(k *kernel.Kernel, id uint8) {
		blinkTicks++
		if blinkTicks%50 == 0 {
			logger.Info("blink", "task", id, "ticks", blinkTicks)
		}
	}, kernel.StateReady, uint32(*blinkShare))
	if err != nil {
		logger.Error("failed to create blinker task", "error", err)
		os.Exit(1)
	}
	logger.Info("blinker task created", "id", blinkID, "share", *blinkShare)

	logger.Info("kernel configured",
		"max_tasks", kernel.DefaultMaxTasks,
		"quantum", *quantum,
		"poll_share", *pollShare)

	fmt.Printf("dkernel demo running. Send framed lines on stdin for the controller poller.\n")
	fmt.Printf("Press Ctrl+C to stop.\n")
	fmt.Printf("Send SIGUSR1 (kill -USR1 %d) to dump goroutine stacks\n", os.Getpid())

	stackDumpCh := make(chan os.Signal, 1)
	signal.Notify(stackDumpCh, syscall.SIGUSR1)
	go func() {
		for range stackDumpCh {
			dumpStacks(logger)
		}
	}()

	go func() {
		if err := kernel.StartKernel(k); err != nil {
			logger.Error("kernel exited with error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")
	cancel()

	if err := clock.Stop(); err != nil {
		logger.Error("error stopping clock", "error", err)
	}

	snap := k.Metrics().Snapshot()
	logger.Info("final metrics",
		"ticks", snap.TicksObserved,
		"context_switches", snap.ContextSwitches,
		"tasks_created", snap.TasksCreated,
		"pool_exhaustions", snap.PoolExhaustions)

	os.Exit(0)
}

// startControllerPoller is the PostBootHook wired into InitKernel, the
// nearest honest analogue to the original firmware's DK_USB_Start: a
// background reader task fed from an io.Reader, framed one line per
// message, instead of a real USB CDC endpoint (out of scope per
// SPEC_FULL's carried-over Non-goals).
func startControllerPoller(k *kernel.Kernel, logger *logging.Logger, r *bufio.Reader, share uint32) error {
	_, err := k.CreateTask(func(kk *kernel.Kernel, id uint8) {
		line, readErr := r.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			logger.Debug("controller frame", "task", id, "payload", line)
		}
		if readErr != nil && readErr != io.EOF {
			logger.Warn("controller poller read error", "error", readErr)
		}
	}, kernel.StateReady, share)
	if err != nil {
		return err
	}
	return nil
}

func dumpStacks(logger *logging.Logger) {
	logger.Info("=== GOROUTINE STACK TRACE DUMP ===")
	buf := make([]byte, 1024*1024)
	n := runtime.Stack(buf, true)
	fmt.Fprintf(os.Stderr, "\n=== FULL GOROUTINE STACK DUMP ===\n%s\n=== END STACK DUMP ===\n\n", buf[:n])

	filename := fmt.Sprintf("dkernel-stacks-%d.txt", time.Now().Unix())
	f, err := os.Create(filename)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "Goroutine stack dump at %s\nProcess ID: %d\n\n", time.Now().Format(time.RFC3339), os.Getpid())
	f.Write(buf[:n])
	fmt.Fprintf(f, "\n\n=== GOROUTINE PROFILE ===\n")
	pprof.Lookup("goroutine").WriteTo(f, 2)
	logger.Info("stack trace written to file", "file", filename)
}
