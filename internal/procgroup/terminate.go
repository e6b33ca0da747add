// SPDX-License-Identifier: MIT

package procgroup

import (
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Terminate stops a process group gracefully: SIGTERM, wait up to
// grace via waitCh, then SIGKILL. The error from waitCh is consumed
// and returned so the caller's Wait goroutine never leaks. Safe on
// nil commands.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	recordSignal("SIGTERM", Kill(cmd, syscall.SIGTERM))

	select {
	case err := <-waitCh:
		if err == nil {
			waitTotal.WithLabelValues("exit0").Inc()
		} else {
			waitTotal.WithLabelValues("exit_nonzero").Inc()
		}
		return err
	case <-time.After(grace):
	}

	recordSignal("SIGKILL", Kill(cmd, syscall.SIGKILL))

	// Drain waitCh unconditionally; after SIGKILL the wait must return.
	err := <-waitCh
	if err == nil {
		waitTotal.WithLabelValues("forced_exit0").Inc()
	} else {
		waitTotal.WithLabelValues("forced_error").Inc()
	}
	return err
}

func recordSignal(sig string, err error) {
	switch {
	case err == nil:
		signalTotal.WithLabelValues(sig, "sent").Inc()
	case strings.Contains(err.Error(), "process already finished"),
		strings.Contains(err.Error(), "no such process"):
		signalTotal.WithLabelValues(sig, "gone").Inc()
	default:
		signalTotal.WithLabelValues(sig, "error").Inc()
	}
}
