package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/breeze-rmm/screendup/internal/logging"
	"github.com/breeze-rmm/screendup/pkg/duplication"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that this host can run desktop duplication",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		out := cmd.OutOrStdout()
		info, err := host.Info()
		if err != nil {
			return fmt.Errorf("read host info: %w", err)
		}
		fmt.Fprintf(out, "host:     %s (%s %s, %s)\n", info.Hostname, info.Platform, info.PlatformVersion, info.KernelArch)

		if err := checkPlatform(info); err != nil {
			report(out, "platform", err)
			return err
		}
		report(out, "platform", nil)

		m, err := duplication.New(uint32(cfg.TimeoutMs),
			duplication.WithCaptureSourceIndex(cfg.CaptureSourceIndex),
			duplication.WithLogger(logging.L("duplication")),
		)
		if err != nil {
			report(out, "duplicate", err)
			return err
		}
		defer m.Close()
		report(out, "duplicate", nil)

		_, size, err := m.CaptureFrameComponents()
		switch {
		case errors.Is(err, duplication.ErrTimeout):
			// An idle desktop produces no frame; the duplication still works.
			fmt.Fprintln(out, "capture:  no new frame within timeout (desktop idle)")
		case err != nil:
			report(out, "capture", err)
			return err
		default:
			fmt.Fprintf(out, "capture:  ok (%dx%d)\n", size.Width, size.Height)
		}
		return nil
	},
}

func report(w io.Writer, check string, err error) {
	if err != nil {
		fmt.Fprintf(w, "%-9s FAIL: %v\n", check+":", err)
		return
	}
	fmt.Fprintf(w, "%-9s ok\n", check+":")
}

// checkPlatform requires Windows 8 (NT 6.2) or later, the first release with
// output duplication.
func checkPlatform(info *host.InfoStat) error {
	if info.OS != "windows" {
		return fmt.Errorf("%w (os %q)", duplication.ErrNotSupported, info.OS)
	}
	major, minor, ok := parseNTVersion(info.PlatformVersion)
	if !ok {
		return fmt.Errorf("unrecognized windows version %q", info.PlatformVersion)
	}
	if major < 6 || (major == 6 && minor < 2) {
		return fmt.Errorf("%w: windows %d.%d predates output duplication (need 6.2+)", duplication.ErrNotSupported, major, minor)
	}
	return nil
}

// parseNTVersion reads the leading "major.minor" from strings such as
// "10.0.22631 Build 22631" or "6.1.7601".
func parseNTVersion(v string) (major, minor int, ok bool) {
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return 0, 0, false
	}
	parts := strings.Split(fields[0], ".")
	if len(parts) < 2 {
		return 0, 0, false
	}
	var err error
	if major, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, false
	}
	if minor, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, false
	}
	return major, minor, true
}
