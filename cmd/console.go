package cmd

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// serialConsole is a pseudoterminal standing in for the physical serial
// line a real kernel would write its boot trace to. --serial-pty allocates
// one and prints the slave path so an operator can `cat` or `screen` it;
// the whole trace is written to it once boot has finished.
type serialConsole struct {
	master *unixFile
	path   string
}

// unixFile is the small slice of *os.File this package needs from the PTY
// master: a raw file descriptor with Write and Close.
type unixFile struct {
	fd int
}

func (f *unixFile) Write(p []byte) (int, error) {
	return unix.Write(f.fd, p)
}

func (f *unixFile) Close() error {
	return unix.Close(f.fd)
}

// newSerialConsole opens a PTY pair via the same ioctls the container
// runtime's console allocator uses for a job control terminal (TIOCGPTN to
// read the slave number, TIOCSPTLCK to unlock it), adapted here from PID
// namespaces to a boot harness's serial line.
func newSerialConsole() (*serialConsole, error) {
	fd, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/ptmx: %w", err)
	}

	ptyno, err := unix.IoctlGetInt(fd, unix.TIOCGPTN)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("TIOCGPTN: %w", err)
	}

	var unlock int32
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPTLCK, int(unlock)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("TIOCSPTLCK: %w", err)
	}

	return &serialConsole{
		master: &unixFile{fd: fd},
		path:   fmt.Sprintf("/dev/pts/%d", ptyno),
	}, nil
}

// SlavePath returns the path an operator can open to read the serial
// trace.
func (c *serialConsole) SlavePath() string { return c.path }

// Write relays boot-harness serial bytes to the PTY master, exactly as a
// hypervisor forwards a guest's COM1 writes to its host-side backend.
func (c *serialConsole) Write(p []byte) (int, error) {
	return c.master.Write(p)
}

func (c *serialConsole) Close() error {
	return c.master.Close()
}
