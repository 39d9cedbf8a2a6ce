package duplication

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/breeze-rmm/screendup/internal/handle"
)

var sessionSeq atomic.Uint64

// candidate is a duplicated output found during acquisition. The device and
// context are shared by every candidate created from the same adapter.
type candidate struct {
	adapter int
	output  int
	desc    OutputDesc
	out     *handle.Owned[Output]
	dup     *handle.Owned[Duplication]
	device  *handle.Shared[Device]
	ctx     *handle.Shared[DeviceContext]
}

func (c *candidate) release() {
	c.dup.Release()
	c.out.Release()
	c.ctx.Release()
	c.device.Release()
}

// session is one acquired duplication: a device, its context, an output and
// the output's duplication. It is valid until close.
type session struct {
	id      uint64
	adapter int
	output  int
	name    string

	out    *handle.Owned[Output]
	dup    *handle.Owned[Duplication]
	device *handle.Shared[Device]
	ctx    *handle.Shared[DeviceContext]

	// Cached CPU-readable copy target, recreated when the frame texture
	// description changes.
	staging     Texture
	stagingFrom TextureDesc

	log *slog.Logger
}

func newSession(c *candidate, log *slog.Logger) *session {
	s := &session{
		id:      sessionSeq.Add(1),
		adapter: c.adapter,
		output:  c.output,
		name:    c.desc.DeviceName,
		out:     c.out,
		dup:     c.dup,
		device:  c.device,
		ctx:     c.ctx,
	}
	s.log = log.With("session", s.id, "adapter", s.adapter, "output", s.output)
	return s
}

// desc re-reads the output description; rotation and position can change
// while the session is alive.
func (s *session) desc() (OutputDesc, error) {
	out, err := s.out.Get()
	if err != nil {
		return OutputDesc{}, err
	}
	return out.Desc()
}

// mapError marks failures after the frame was copied, which are reported
// without invalidating the session.
type mapError struct {
	err error
}

func (e *mapError) Error() string { return "map staging texture: " + e.err.Error() }
func (e *mapError) Unwrap() error { return e.err }

// extractError marks a mapped surface that could not be converted.
type extractError struct {
	err error
}

func (e *extractError) Error() string { return "extract frame: " + e.err.Error() }
func (e *extractError) Unwrap() error { return e.err }

// captureFrame acquires the next frame, copies it to the staging texture,
// maps it and extracts it into dst. Driver errors from acquisition and
// staging creation are returned unwrapped so the manager can classify them.
func (s *session) captureFrame(timeoutMs uint32, dst []byte) ([]byte, Size, error) {
	dup, err := s.dup.Get()
	if err != nil {
		return nil, Size{}, err
	}
	frame, err := dup.AcquireNextFrame(timeoutMs)
	if err != nil {
		return nil, Size{}, err
	}
	defer func() {
		frame.Release()
		if err := dup.ReleaseFrame(); err != nil {
			s.log.Warn("ReleaseFrame failed", "error", err)
		}
	}()

	staging, err := s.stagingFor(frame.Desc())
	if err != nil {
		return nil, Size{}, err
	}

	ctx, err := s.ctx.Get()
	if err != nil {
		return nil, Size{}, err
	}
	s.ctx.Lock()
	defer s.ctx.Unlock()

	ctx.CopyResource(staging, frame)

	mapped, err := ctx.Map(staging)
	if err != nil {
		return nil, Size{}, &mapError{err: err}
	}
	defer ctx.Unmap(staging)

	rotation := RotationIdentity
	desc, descErr := s.desc()
	if descErr != nil {
		s.log.Debug("output GetDesc failed, assuming identity rotation", "error", descErr)
	} else {
		rotation = desc.Rotation
	}

	texDesc := staging.Desc()
	buf, size, err := Extract(dst, MappedFrame{
		Data:     mapped.Data,
		Pitch:    mapped.RowPitch,
		Width:    int(texDesc.Width),
		Height:   int(texDesc.Height),
		Rotation: rotation,
	})
	if err != nil {
		return nil, Size{}, &extractError{err: err}
	}

	rect := desc.DesktopCoordinates
	if descErr == nil && (rect.Width() != size.Width || rect.Height() != size.Height) {
		s.log.Debug("output rectangle does not match frame texture",
			"rectW", rect.Width(), "rectH", rect.Height(),
			"frameW", size.Width, "frameH", size.Height, "rotation", rotation)
	}
	return buf, size, nil
}

// stagingFor returns a staging texture compatible with a frame of the given
// description, creating one on the session's device if needed.
func (s *session) stagingFor(frame TextureDesc) (Texture, error) {
	if s.staging != nil && s.stagingFrom == frame {
		return s.staging, nil
	}
	if s.staging != nil {
		s.staging.Release()
		s.staging = nil
	}

	dev, err := s.device.Get()
	if err != nil {
		return nil, err
	}
	s.device.Lock()
	tex, err := dev.CreateTexture2D(stagingDesc(frame))
	s.device.Unlock()
	if err != nil {
		return nil, fmt.Errorf("create staging texture: %w", err)
	}
	// Lower priorities let the driver page the texture out to system memory
	// between frames, which shows up as large copy-time spikes.
	tex.SetEvictionPriority(ResourcePriorityMaximum)

	s.staging = tex
	s.stagingFrom = frame
	s.log.Debug("staging texture created", "name", s.name, "width", frame.Width, "height", frame.Height)
	return tex, nil
}

// close releases every handle the session owns.
func (s *session) close() {
	if s.staging != nil {
		s.staging.Release()
		s.staging = nil
	}
	s.dup.Release()
	s.out.Release()
	s.ctx.Release()
	s.device.Release()
}
