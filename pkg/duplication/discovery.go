package duplication

import (
	"errors"
	"iter"
	"log/slog"
)

// adapters yields the factory's adapters in index order, stopping at the
// first enumeration failure. The consumer owns every yielded adapter.
func adapters(f Factory, log *slog.Logger) iter.Seq2[int, Adapter] {
	return func(yield func(int, Adapter) bool) {
		for i := 0; ; i++ {
			a, err := f.EnumAdapter(i)
			if err != nil {
				if !errors.Is(err, HRNotFound) {
					log.Warn("EnumAdapters1 failed", "index", i, "error", err)
				}
				return
			}
			if !yield(i, a) {
				return
			}
		}
	}
}

// outputs yields an adapter's outputs in index order, stopping at the first
// enumeration failure. The consumer owns every yielded output.
func outputs(a Adapter, log *slog.Logger) iter.Seq2[int, Output] {
	return func(yield func(int, Output) bool) {
		for i := 0; ; i++ {
			o, err := a.EnumOutput(i)
			if err != nil {
				if !errors.Is(err, HRNotFound) {
					log.Warn("EnumOutputs failed", "index", i, "error", err)
				}
				return
			}
			if !yield(i, o) {
				return
			}
		}
	}
}

// desktopOutput is an enumerated output and its description.
type desktopOutput struct {
	index  int
	output Output
	desc   OutputDesc
}

// desktopOutputs returns the leading run of desktop-attached outputs on a.
// Enumeration stops at the first output that is not attached to the desktop
// (or whose description cannot be read); later outputs are not considered.
func desktopOutputs(a Adapter, log *slog.Logger) []desktopOutput {
	var outs []desktopOutput
	for i, o := range outputs(a, log) {
		desc, err := o.Desc()
		if err != nil {
			log.Warn("IDXGIOutput::GetDesc failed", "index", i, "error", err)
			o.Release()
			break
		}
		if !desc.AttachedToDesktop {
			o.Release()
			break
		}
		outs = append(outs, desktopOutput{index: i, output: o, desc: desc})
	}
	return outs
}

// isPrimary reports whether o is the OS primary monitor.
func isPrimary(win Windowing, o Output) bool {
	desc, err := o.Desc()
	if err != nil {
		return false
	}
	return win.IsPrimaryMonitor(desc.Monitor)
}

// selectTarget picks the capture source from candidates in discovery order.
// Index 0 is the primary output; index k > 0 is the k-th non-primary one.
func selectTarget[T any](candidates []T, index int, primary func(T) bool) (int, bool) {
	if index < 0 {
		return -1, false
	}
	if index == 0 {
		for i, c := range candidates {
			if primary(c) {
				return i, true
			}
		}
		return -1, false
	}
	seen := 0
	for i, c := range candidates {
		if primary(c) {
			continue
		}
		seen++
		if seen == index {
			return i, true
		}
	}
	return -1, false
}

// OutputInfo describes one desktop-attached output.
type OutputInfo struct {
	Adapter     int      `json:"adapter" yaml:"adapter"`
	Output      int      `json:"output" yaml:"output"`
	Name        string   `json:"name" yaml:"name"`
	Left        int      `json:"left" yaml:"left"`
	Top         int      `json:"top" yaml:"top"`
	Width       int      `json:"width" yaml:"width"`
	Height      int      `json:"height" yaml:"height"`
	Rotation    Rotation `json:"rotation" yaml:"rotation"`
	Primary     bool     `json:"primary" yaml:"primary"`
	SourceIndex int      `json:"sourceIndex" yaml:"sourceIndex"`
}

// ListOutputs enumerates desktop-attached outputs on every adapter, in the
// order used to resolve capture source indices. It does not duplicate
// anything, so it is safe to call while a Manager is capturing.
func ListOutputs(driver Driver, win Windowing, log *slog.Logger) ([]OutputInfo, error) {
	if log == nil {
		log = slog.Default()
	}
	f, err := driver.NewFactory()
	if err != nil {
		return nil, err
	}
	defer f.Release()

	var infos []OutputInfo
	nonPrimary := 0
	for ai, a := range adapters(f, log) {
		outs := desktopOutputs(a, log)
		a.Release()
		for _, o := range outs {
			primary := win.IsPrimaryMonitor(o.desc.Monitor)
			info := OutputInfo{
				Adapter:  ai,
				Output:   o.index,
				Name:     o.desc.DeviceName,
				Left:     int(o.desc.DesktopCoordinates.Left),
				Top:      int(o.desc.DesktopCoordinates.Top),
				Width:    o.desc.DesktopCoordinates.Width(),
				Height:   o.desc.DesktopCoordinates.Height(),
				Rotation: o.desc.Rotation,
				Primary:  primary,
			}
			if !primary {
				nonPrimary++
				info.SourceIndex = nonPrimary
			}
			infos = append(infos, info)
			o.output.Release()
		}
	}
	return infos, nil
}
