// Package link implements a point-to-point serial transport for tagged
// opaque payloads carried in tunnel frames. A Link owns one serial port
// and one background receiver; sends are immediate and best effort.
package link

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/mavconn/mavconn/mavlink"
)

// Handler receives every inbound tunnel payload together with its tag. It
// runs on the link's receive goroutine, so a handler that blocks stalls
// all further reception.
type Handler func(tid uint8, payload []byte)

// Link is the transport facade. The zero value is ready for Init. A Link
// that has been closed is done; create a new one to reconnect.
type Link struct {
	port    comPort
	handler Handler

	sysID  uint8
	compID uint8

	seqMu sync.Mutex
	seq   uint8

	stop      chan struct{}
	loopDone  sync.WaitGroup
	closeOnce sync.Once
}

// Init stores the identity and handler, opens the serial device and starts
// the background receiver. The receiver only starts when the open
// succeeds, so no goroutine ever exists without a valid port. Init must
// not be called on a Link that is already running; Close it first.
func (l *Link) Init(handler Handler, path string, baud int, sysID, compID uint8) error {
	l.handler = handler
	l.sysID = sysID
	l.compID = compID

	if err := l.port.open(path, baud); err != nil {
		return fmt.Errorf("link: open %s: %w", path, err)
	}

	l.start()
	return nil
}

func (l *Link) start() {
	l.stop = make(chan struct{})
	l.loopDone.Add(1)
	go l.recvLoop()
}

// Send encodes one payload into a tunnel frame and writes it out
// immediately. Payloads beyond mavlink.MaxPayload are truncated. Sending
// on a never-opened or closed link is a silent no-op, matching the port's
// best-effort write contract.
func (l *Link) Send(tid uint8, payload []byte) {
	l.seqMu.Lock()
	seq := l.seq
	l.seq++
	l.seqMu.Unlock()

	l.port.write(mavlink.Encode(tid, payload, l.sysID, l.compID, seq))
}

// Close stops the receiver and releases the port. The receiver is joined
// before the port is torn down so the loop never touches a half-closed
// descriptor. Safe to call more than once, or on a Link that never ran.
func (l *Link) Close() {
	l.closeOnce.Do(func() {
		if l.stop != nil {
			close(l.stop)
			l.loopDone.Wait()
		}
		l.port.close()
	})
}

// recvLoop continuously drains the port and feeds the decoder, dispatching
// each decoded tunnel frame to the handler. No read or parse fault is
// fatal; the loop only exits on cancellation.
func (l *Link) recvLoop() {
	defer l.loopDone.Done()

	var dec mavlink.Decoder
	rx := make([]byte, 256)

	for {
		select {
		case <-l.stop:
			return
		default:
		}

		n, err := l.port.read(rx)
		switch {
		case err == errPortClosed:
			// Port not open yet or closed under us. Wait for it.
			time.Sleep(10 * time.Millisecond)
			continue
		case err == io.EOF:
			// Read timeout with nothing buffered.
			time.Sleep(5 * time.Millisecond)
			continue
		case err != nil:
			log.Printf("Error reading from port: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		case n == 0:
			time.Sleep(5 * time.Millisecond)
			continue
		}

		for _, b := range rx[:n] {
			f, ok := dec.ParseByte(b)
			if !ok {
				continue
			}
			if f.MsgID != mavlink.TunnelMsgID {
				log.Printf("Dropping message with unknown id: %d", f.MsgID)
				continue
			}
			if l.handler != nil {
				l.handler(f.TID, f.Payload)
			}
		}
	}
}
