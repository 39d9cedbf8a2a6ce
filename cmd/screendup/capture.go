package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/breeze-rmm/screendup/internal/logging"
	"github.com/breeze-rmm/screendup/pkg/duplication"
	"github.com/spf13/cobra"
)

var (
	flagFrames     int
	flagIntervalMs int
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture frames and print their average colour",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		m, err := duplication.New(uint32(cfg.TimeoutMs),
			duplication.WithCaptureSourceIndex(cfg.CaptureSourceIndex),
			duplication.WithLogger(logging.L("duplication")),
		)
		if err != nil {
			return err
		}
		defer m.Close()

		loop := captureLoop{
			src:      m,
			frames:   cfg.Frames,
			interval: time.Duration(cfg.IntervalMs) * time.Millisecond,
			out:      cmd.OutOrStdout(),
		}
		summary := loop.run(ctx)

		st := m.Stats()
		log.Info("capture finished",
			"frames", summary.captured,
			"unchanged", summary.unchanged,
			"timeouts", summary.timeouts,
			"failed", summary.failed,
			"accessLost", st.AccessLost,
			"acquisitions", st.Acquisitions,
			logging.KeyDurationMs, st.CaptureMs,
		)
		if summary.captured == 0 && summary.failed > 0 {
			return fmt.Errorf("no frame captured: %w", summary.lastErr)
		}
		return nil
	},
}

func init() {
	captureCmd.Flags().IntVarP(&flagFrames, "frames", "n", 10, "number of frames to capture")
	captureCmd.Flags().IntVar(&flagIntervalMs, "interval", 0, "delay between captures in milliseconds")
}

// frameSource is the part of *duplication.Manager the capture loop drives.
type frameSource interface {
	CaptureFrameComponents() ([]byte, duplication.Size, error)
	Recycle(buf []byte)
}

type captureLoop struct {
	src      frameSource
	frames   int
	interval time.Duration
	out      io.Writer
	sleep    func(context.Context, time.Duration) bool
}

type captureSummary struct {
	captured  int
	unchanged int
	timeouts  int
	failed    int
	lastErr   error
}

const (
	minBackoff = 100 * time.Millisecond
	maxBackoff = 2 * time.Second
)

// run makes frames capture attempts, or fewer if ctx ends first. Every
// attempt prints one line, whether it yields a frame, a timeout or an error.
func (l *captureLoop) run(ctx context.Context) captureSummary {
	log := logging.FromContext(ctx)
	sleep := l.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var (
		sum     captureSummary
		differ  = newFrameDiffer()
		backoff = minBackoff
	)

	for attempt := 0; attempt < l.frames; {
		if ctx.Err() != nil {
			return sum
		}

		buf, size, err := l.src.CaptureFrameComponents()
		switch {
		case err == nil:
			attempt++
			sum.captured++
			backoff = minBackoff
			if !differ.HasChanged(buf) {
				sum.unchanged++
			}
			c := averageColour(buf)
			fmt.Fprintf(l.out, "frame %d: %dx%d avg=#%02x%02x%02x\n", attempt, size.Width, size.Height, c.R, c.G, c.B)
			l.src.Recycle(buf)

		case errors.Is(err, duplication.ErrTimeout):
			// An idle desktop produces no frame; still an outcome.
			attempt++
			sum.timeouts++
			fmt.Fprintf(l.out, "frame %d: timeout\n", attempt)

		case errors.Is(err, duplication.ErrAccessDenied), errors.Is(err, duplication.ErrRefreshFailure):
			attempt++
			sum.failed++
			sum.lastErr = err
			fmt.Fprintf(l.out, "frame %d: %v, retrying in %s\n", attempt, err, backoff)
			log.Debug("capture backing off", logging.KeyError, err, "backoff", backoff)
			if !sleep(ctx, backoff) {
				return sum
			}
			backoff = min(backoff*2, maxBackoff)
			continue

		default:
			attempt++
			sum.failed++
			sum.lastErr = err
			fmt.Fprintf(l.out, "frame %d: %v\n", attempt, err)
			log.Warn("capture failed", logging.KeyError, err)
		}

		if l.interval > 0 && attempt < l.frames {
			if !sleep(ctx, l.interval) {
				return sum
			}
		}
	}
	return sum
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// averageColour returns the mean of every channel over a BGRA buffer.
func averageColour(buf []byte) duplication.BGRA8 {
	n := len(buf) / duplication.BytesPerPixel
	if n == 0 {
		return duplication.BGRA8{}
	}
	var b, g, r, a uint64
	for i := 0; i+3 < len(buf); i += duplication.BytesPerPixel {
		b += uint64(buf[i])
		g += uint64(buf[i+1])
		r += uint64(buf[i+2])
		a += uint64(buf[i+3])
	}
	div := uint64(n)
	return duplication.BGRA8{B: uint8(b / div), G: uint8(g / div), R: uint8(r / div), A: uint8(a / div)}
}
