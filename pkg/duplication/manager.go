package duplication

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/breeze-rmm/screendup/internal/handle"
	"github.com/breeze-rmm/screendup/internal/logging"
)

// timeoutLogInterval rate-limits the timeout diagnostic.
const timeoutLogInterval = 100

// Manager captures frames from one display output using desktop
// duplication. It owns at most one duplication session; a nil session means
// the next capture call re-acquires before requesting a frame.
//
// Methods are safe to call from multiple goroutines, but two managers must
// not capture concurrently on the same device.
type Manager struct {
	mu sync.Mutex

	driver    Driver
	windowing Windowing
	log       *slog.Logger

	session     *session
	sourceIndex int
	timeoutMs   uint32
	closed      bool

	lastSize Size
	pool     framePool
	stats    *captureStats
}

// Option configures a Manager.
type Option func(*Manager)

// WithDriver replaces the platform display driver and windowing layer.
func WithDriver(d Driver, w Windowing) Option {
	return func(m *Manager) {
		m.driver = d
		m.windowing = w
	}
}

// WithLogger sets the logger used by the manager.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithCaptureSourceIndex selects the initial capture source. 0 is the
// primary output, N > 0 the Nth other output in discovery order.
func WithCaptureSourceIndex(index int) Option {
	return func(m *Manager) {
		m.sourceIndex = index
	}
}

// New creates a manager and acquires the selected output. It fails if no
// output can be duplicated; there is no partially usable manager.
func New(timeoutMs uint32, opts ...Option) (*Manager, error) {
	m := &Manager{
		timeoutMs: timeoutMs,
		log:       logging.L("duplication"),
		stats:     newCaptureStats(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sourceIndex < 0 {
		return nil, fmt.Errorf("%w: invalid capture source index %d", ErrNoDuplicatedOutput, m.sourceIndex)
	}
	if m.driver == nil {
		d, w, err := platformDriver()
		if err != nil {
			return nil, err
		}
		m.driver, m.windowing = d, w
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.acquireLocked(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDuplicatedOutput, err)
	}
	return m, nil
}

// CaptureSourceIndex returns the configured capture source index.
func (m *Manager) CaptureSourceIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sourceIndex
}

// SetCaptureSourceIndex retargets the manager and re-acquires synchronously.
// If the new index cannot be acquired, the previous index is restored and
// re-acquired; the returned error wraps ErrNoDuplicatedOutput either way, and
// Acquired reports which state the manager ended up in.
func (m *Manager) SetCaptureSourceIndex(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if index < 0 {
		return fmt.Errorf("%w: invalid capture source index %d", ErrNoDuplicatedOutput, index)
	}

	prev := m.sourceIndex
	m.sourceIndex = index
	err := m.acquireLocked()
	if err == nil {
		return nil
	}

	m.log.Warn("capture source unavailable, restoring previous source",
		"index", index, "previous", prev, logging.KeyError, err)
	m.sourceIndex = prev
	if rerr := m.acquireLocked(); rerr != nil {
		return fmt.Errorf("%w: capture source %d: %v (restoring source %d also failed: %v)",
			ErrNoDuplicatedOutput, index, err, prev, rerr)
	}
	return fmt.Errorf("%w: capture source %d: %v", ErrNoDuplicatedOutput, index, err)
}

// TimeoutMs returns the frame wait timeout.
func (m *Manager) TimeoutMs() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeoutMs
}

// SetTimeoutMs sets the longest time one capture call waits for a new frame.
func (m *Manager) SetTimeoutMs(timeoutMs uint32) {
	m.mu.Lock()
	m.timeoutMs = timeoutMs
	m.mu.Unlock()
}

// Acquired reports whether the manager currently holds a session.
func (m *Manager) Acquired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// Stats returns a snapshot of the capture counters.
func (m *Manager) Stats() StatsSnapshot {
	return m.stats.snapshot()
}

// CaptureFrame captures one frame as pixels.
func (m *Manager) CaptureFrame() ([]BGRA8, Size, error) {
	buf, size, err := m.CaptureFrameComponents()
	if err != nil {
		return nil, Size{}, err
	}
	return BytesToPixels(buf), size, nil
}

// CaptureFrameComponents captures one frame as packed BGRA bytes, four per
// pixel, rows top to bottom with no padding. Pass the buffer to Recycle once
// done with it to avoid an allocation on the next call.
func (m *Manager) CaptureFrameComponents() ([]byte, Size, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var dst []byte
	if n := m.lastSize.Bytes(); n > 0 {
		dst = m.pool.Get(n)
	}
	return m.captureLocked(dst)
}

// CaptureFrameInto captures one frame into dst, growing it if needed.
func (m *Manager) CaptureFrameInto(dst []byte) ([]byte, Size, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captureLocked(dst)
}

// Recycle hands a frame buffer back for reuse by CaptureFrameComponents.
func (m *Manager) Recycle(buf []byte) {
	m.pool.Put(buf)
}

// Close releases the session. Later capture calls return ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropSessionLocked()
	m.closed = true
	return nil
}

func (m *Manager) captureLocked(dst []byte) ([]byte, Size, error) {
	if m.closed {
		return nil, Size{}, ErrClosed
	}

	if m.session == nil {
		if err := m.acquireLocked(); err != nil {
			m.log.Debug("re-acquisition failed", logging.KeyError, err)
			return nil, Size{}, ErrRefreshFailure
		}
		return nil, Size{}, &FailError{Reason: "no valid duplicated output"}
	}

	start := time.Now()
	buf, size, err := m.session.captureFrame(m.timeoutMs, dst)
	if err != nil {
		return nil, Size{}, m.classifyLocked(err)
	}
	m.stats.recordFrame(time.Since(start))
	m.lastSize = size
	return buf, size, nil
}

// classifyLocked translates a session error into the capture error
// taxonomy, re-acquiring where the session can no longer be trusted.
func (m *Manager) classifyLocked(err error) error {
	var me *mapError
	var ee *extractError
	switch {
	case errors.As(err, &me):
		m.stats.recordFailure()
		m.log.Warn("failed to map frame", logging.KeyError, err)
		return &FailError{Reason: "failed to map surface"}

	case errors.As(err, &ee):
		m.stats.recordFailure()
		m.log.Warn("failed to extract frame", logging.KeyError, err)
		return &FailError{Reason: "failed to extract frame"}

	case errors.Is(err, HRWaitTimeout):
		if n := m.stats.recordTimeout(); n == 1 || n%timeoutLogInterval == 0 {
			m.log.Debug("AcquireNextFrame timed out", "timeouts", n, "timeoutMs", m.timeoutMs)
		}
		return ErrTimeout

	case errors.Is(err, HRAccessDenied):
		m.stats.recordAccessDenied()
		return ErrAccessDenied

	case errors.Is(err, HRAccessLost):
		// Reported as access lost whether or not re-acquisition works; a
		// failed re-acquisition leaves the manager unacquired and the next
		// call reports it.
		m.stats.recordAccessLost()
		m.log.Info("duplicated output access lost, re-acquiring")
		if aerr := m.acquireLocked(); aerr != nil {
			m.log.Warn("re-acquisition after access lost failed", logging.KeyError, aerr)
		}
		return ErrAccessLost

	default:
		m.stats.recordFailure()
		m.log.Warn("frame acquisition failed, re-acquiring", logging.KeyError, err)
		if aerr := m.acquireLocked(); aerr != nil {
			m.log.Warn("re-acquisition failed", logging.KeyError, aerr)
			return ErrRefreshFailure
		}
		return &FailError{Reason: "failure when acquiring frame"}
	}
}

func (m *Manager) dropSessionLocked() {
	if m.session != nil {
		m.session.close()
		m.session = nil
	}
}

// acquireLocked drops the current session and duplicates the output
// matching sourceIndex. Adapters are visited in order; after each adapter
// that yields outputs, selection runs over everything duplicated so far.
func (m *Manager) acquireLocked() (err error) {
	m.dropSessionLocked()
	defer func() { m.stats.recordAcquire(err == nil) }()

	factory, err := m.driver.NewFactory()
	if err != nil {
		return fmt.Errorf("create DXGI factory: %w", err)
	}
	defer factory.Release()

	var cands []*candidate
	defer func() {
		for _, c := range cands {
			if c != nil {
				c.release()
			}
		}
	}()

	primary := func(c *candidate) bool {
		out, err := c.out.Get()
		if err != nil {
			return false
		}
		return isPrimary(m.windowing, out)
	}

	for ai, adapter := range adapters(factory, m.log) {
		outs := desktopOutputs(adapter, m.log)
		if len(outs) == 0 {
			adapter.Release()
			continue
		}

		dup, err := duplicateAdapterOutputs(ai, adapter, outs)
		adapter.Release()
		if err != nil {
			return fmt.Errorf("adapter %d: %w", ai, err)
		}
		cands = append(cands, dup...)

		i, ok := selectTarget(cands, m.sourceIndex, primary)
		if !ok {
			continue
		}
		chosen := cands[i]
		cands[i] = nil
		m.session = newSession(chosen, m.log)
		m.log.Info("output duplication acquired",
			logging.KeySourceIndex, m.sourceIndex,
			"adapter", chosen.adapter,
			"output", chosen.output,
			"name", chosen.desc.DeviceName,
			"width", chosen.desc.DesktopCoordinates.Width(),
			"height", chosen.desc.DesktopCoordinates.Height(),
			"rotation", chosen.desc.Rotation,
		)
		return nil
	}

	return fmt.Errorf("no output matches capture source index %d (%d duplicated)", m.sourceIndex, len(cands))
}

// duplicateAdapterOutputs creates one device for the adapter and duplicates
// each output on it. The device reference returned by each duplication
// replaces the previous one; the final reference is shared by all returned
// candidates. Any duplication failure aborts the whole adapter. Ownership of
// outs passes to this function.
func duplicateAdapterOutputs(ai int, adapter Adapter, outs []desktopOutput) ([]*candidate, error) {
	releaseOuts := func(from int) {
		for _, o := range outs[from:] {
			o.output.Release()
		}
	}

	dev, ctx, err := adapter.CreateDevice()
	if err != nil {
		releaseOuts(0)
		return nil, fmt.Errorf("create device: %w", err)
	}

	type pair struct {
		o   desktopOutput
		dup Duplication
	}
	pairs := make([]pair, 0, len(outs))
	for i, o := range outs {
		dup, next, err := o.output.DuplicateOutput(dev)
		if err != nil {
			for _, p := range pairs {
				p.dup.Release()
				p.o.output.Release()
			}
			releaseOuts(i)
			ctx.Release()
			dev.Release()
			return nil, fmt.Errorf("duplicate output %d: %w", o.index, err)
		}
		dev.Release()
		dev = next
		pairs = append(pairs, pair{o: o, dup: dup})
	}

	releasePairs := func() {
		for _, p := range pairs {
			p.dup.Release()
			p.o.output.Release()
		}
	}

	device := handle.NewShared(dev)
	devCtx := handle.NewShared(ctx)
	devs, err := shareN(device, len(pairs))
	if err != nil {
		releasePairs()
		devCtx.Release()
		device.Release()
		return nil, fmt.Errorf("share device: %w", err)
	}
	ctxs, err := shareN(devCtx, len(pairs))
	if err != nil {
		releasePairs()
		for _, d := range devs {
			d.Release()
		}
		devCtx.Release()
		return nil, fmt.Errorf("share device context: %w", err)
	}

	cands := make([]*candidate, 0, len(pairs))
	for i, p := range pairs {
		cands = append(cands, &candidate{
			adapter: ai,
			output:  p.o.index,
			desc:    p.o.desc,
			out:     handle.NewOwned(p.o.output),
			dup:     handle.NewOwned(p.dup),
			device:  devs[i],
			ctx:     ctxs[i],
		})
	}
	return cands, nil
}

// shareN returns n holders of s's resource: s itself followed by n-1 clones.
// On error the clones made so far are released; s is left to the caller.
func shareN[T handle.Releaser](s *handle.Shared[T], n int) ([]*handle.Shared[T], error) {
	holders := make([]*handle.Shared[T], 0, n)
	if n == 0 {
		return holders, nil
	}
	holders = append(holders, s)
	for len(holders) < n {
		c, err := s.Clone()
		if err != nil {
			for _, h := range holders[1:] {
				h.Release()
			}
			return nil, err
		}
		holders = append(holders, c)
	}
	return holders, nil
}
