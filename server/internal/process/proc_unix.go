//go:build !windows

package process

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// yt-dlp spawns ffmpeg as a child. The process gets its own group so the
// whole tree can be signalled at once.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func terminate(p *os.Process) error { return signalGroup(p, unix.SIGTERM) }

func kill(p *os.Process) error { return signalGroup(p, unix.SIGKILL) }

func signalGroup(p *os.Process, sig syscall.Signal) error {
	pgid, err := unix.Getpgid(p.Pid)
	if err != nil {
		// the leader is gone but its group may still have members
		pgid = p.Pid
	}
	return unix.Kill(-pgid, sig)
}
