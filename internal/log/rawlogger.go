package log

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// RawLogger traces the raw reports drivers read from devices.
type RawLogger interface {
	Log(device string, data []byte)
}

type rawLogger struct {
	w   io.Writer
	mu  sync.Mutex
	now func() time.Time
}

// NewRaw creates a RawLogger. A nil writer discards everything.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w, now: time.Now}
}

// Log emits one line with a timestamp, the device and a hex dump.
// Empty reports are skipped.
func (r *rawLogger) Log(device string, data []byte) {
	if len(data) == 0 || r.w == nil {
		return
	}

	line := fmt.Sprintf("%s %s report: %d bytes, hex: % x\n",
		r.now().Format("2006/01/02 15:04:05.000"),
		device,
		len(data),
		data)

	r.mu.Lock()
	_, _ = r.w.Write([]byte(line))
	r.mu.Unlock()
}

