//go:build windows

package supervisor

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// processIsAlive checks if a process is still running on Windows by
// opening a handle and checking the exit code.
func processIsAlive(proc *os.Process) bool {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(proc.Pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(handle)

	var exitCode uint32
	if err := windows.GetExitCodeProcess(handle, &exitCode); err != nil {
		return false
	}
	// STILL_ACTIVE (259) means the process has not exited yet.
	return exitCode == 259
}

// sendGracefulStop on Windows has no SIGTERM equivalent that the Core can
// trap the way it can on Unix, so it terminates the process outright
// (TerminateProcess via os.Process.Kill); Supervisor.Stop calls it first,
// so on Windows the stop is never graceful.
func sendGracefulStop(proc *os.Process) error {
	return proc.Kill()
}

// newJobObject creates an unnamed Job Object with
// JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE set, so that if the control plane
// itself is killed without a chance to call Stop, Windows tears down the
// Core process too rather than leaving it orphaned — there is no SIGKILL
// equivalent a parent can rely on to reap a true orphan on Windows.
func newJobObject() (windows.Handle, error) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return 0, err
	}
	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}
	if _, err := windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	); err != nil {
		windows.CloseHandle(job)
		return 0, err
	}
	return job, nil
}

// assignProcessToJobObject adds pid to job so its lifetime is bound to
// the job's own lifetime (see newJobObject).
func assignProcessToJobObject(job windows.Handle, pid int) error {
	handle, err := windows.OpenProcess(windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return err
	}
	defer windows.CloseHandle(handle)
	return windows.AssignProcessToJobObject(job, handle)
}
