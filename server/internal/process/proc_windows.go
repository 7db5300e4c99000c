//go:build windows

package process

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"golang.org/x/sys/windows"
)

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW | windows.CREATE_NEW_PROCESS_GROUP,
	}
}

func terminate(p *os.Process) error { return taskkill(p, false) }

func kill(p *os.Process) error { return taskkill(p, true) }

// taskkill /T takes the whole child tree (ffmpeg included) down with the parent.
func taskkill(p *os.Process, force bool) error {
	args := []string{"/T", "/PID", strconv.Itoa(p.Pid)}
	if force {
		args = append([]string{"/F"}, args...)
	}

	cmd := exec.Command("taskkill", args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
	return cmd.Run()
}
