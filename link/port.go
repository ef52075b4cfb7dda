package link

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// DefaultBaud is applied when an unsupported rate is requested.
const DefaultBaud = 115200

// readTimeout bounds a single port read so the receive loop can poll for
// cancellation between reads.
const readTimeout = 100 * time.Millisecond

var supportedBauds = map[int]bool{
	9600:   true,
	19200:  true,
	38400:  true,
	57600:  true,
	115200: true,
}

var errPortClosed = errors.New("port not open")

// checkBaud maps the requested rate to a supported one, falling back to
// DefaultBaud with a warning.
func checkBaud(baud int) int {
	if supportedBauds[baud] {
		return baud
	}
	log.Printf("Unsupported baud rate: %d, defaulting to %d", baud, DefaultBaud)
	return DefaultBaud
}

// Serial connection over which the link runs.
// Typically a UART, radio modem or USB-serial bridge.
type wire interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	Flush() error
}

// comPort owns the OS serial descriptor. A single mutex guards open, close,
// write and the open-state check, so the descriptor never changes under an
// in-flight operation. The blocking read itself runs against a snapshot
// taken under the lock, keeping inbound traffic from stalling writes.
type comPort struct {
	mu  sync.Mutex
	dev wire
}

// open acquires the serial device at path, configured raw 8N1. Opening an
// already open port is a no-op and does not reconfigure it. On failure the
// port is left fully closed.
func (c *comPort) open(path string, baud int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev != nil {
		return nil
	}

	cfg := &serial.Config{
		Name:        path,
		Baud:        checkBaud(baud),
		ReadTimeout: readTimeout,
	}
	p, err := serial.OpenPort(cfg)
	if err != nil {
		return err
	}

	// Discard anything buffered from before we owned the port.
	if err := p.Flush(); err != nil {
		p.Close()
		return err
	}

	c.dev = p
	log.Printf("Opened port %s at %d bps", path, cfg.Baud)
	return nil
}

// close releases the device if held. Safe to call repeatedly.
func (c *comPort) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev == nil {
		return
	}
	c.dev.Close()
	c.dev = nil
	log.Println("Port closed")
}

// write pushes one encoded frame out in a single best-effort write call.
// Writes on a closed port are dropped silently; write faults and short
// writes are logged, not reported. Serial links are best effort.
func (c *comPort) write(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev == nil {
		return
	}

	n, err := c.dev.Write(p)
	if err != nil {
		log.Printf("Error writing to port: %v", err)
		return
	}
	if n != len(p) {
		log.Printf("Short write to port: sent %d of %d bytes", n, len(p))
	}
}

// read pulls up to len(p) bytes, returning errPortClosed when no device is
// held. A zero count with nil error means nothing arrived within the read
// timeout.
func (c *comPort) read(p []byte) (int, error) {
	c.mu.Lock()
	dev := c.dev
	c.mu.Unlock()

	if dev == nil {
		return 0, errPortClosed
	}
	return dev.Read(p)
}
