package daemon

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/getaifs/vibefs/internal/vibeerr"
)

// dialTimeout bounds the trial connection used to tell a live daemon's
// socket from one left behind by a crash.
const dialTimeout = 2 * time.Second

// clearStaleSocket checks whether a daemon is already listening on
// path. If one answers, it refuses to proceed; if the file exists but
// nothing answers, it is a stale socket from a crashed daemon and is
// removed so the new listener can bind the path.
func clearStaleSocket(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err == nil {
		conn.Close()
		return fmt.Errorf("%w: a daemon is already running for this repository", vibeerr.ErrBusy)
	}

	return os.Remove(path)
}
