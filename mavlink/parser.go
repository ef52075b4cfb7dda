package mavlink

import "github.com/sigurn/crc16"

type parseState int

const (
	stateIdle parseState = iota
	stateLen
	stateSeq
	stateSysID
	stateCompID
	stateMsgID
	statePayload
	stateCRCLow
	stateCRCHigh
)

// Decoder reconstructs frames from a raw byte stream fed to it one byte at
// a time. Frames routinely split across read boundaries, so the Decoder
// carries its cursor and running checksum between calls. Any validation
// failure silently drops the partial frame and resyncs on the next start
// marker. Not safe for concurrent use; the receive loop is the single
// caller.
type Decoder struct {
	state   parseState
	length  uint8
	seq     uint8
	sysID   uint8
	compID  uint8
	msgID   uint8
	payload []byte
	sum     uint16
	crcLow  uint8
}

// ParseByte advances the decoder by one byte. It returns a complete frame
// and true when b finishes one; tunnel frames are checksum verified, while
// frames with a foreign message id are only structurally complete (their
// checksum seed is unknown) and carry no payload.
func (d *Decoder) ParseByte(b byte) (Frame, bool) {
	switch d.state {
	case stateIdle:
		if b == magic {
			d.sum = crc16.Init(crcTable)
			d.state = stateLen
		}
	case stateLen:
		d.length = b
		d.payload = d.payload[:0]
		d.sum = crc16.Update(d.sum, []byte{b}, crcTable)
		d.state = stateSeq
	case stateSeq:
		d.seq = b
		d.sum = crc16.Update(d.sum, []byte{b}, crcTable)
		d.state = stateSysID
	case stateSysID:
		d.sysID = b
		d.sum = crc16.Update(d.sum, []byte{b}, crcTable)
		d.state = stateCompID
	case stateCompID:
		d.compID = b
		d.sum = crc16.Update(d.sum, []byte{b}, crcTable)
		d.state = stateMsgID
	case stateMsgID:
		d.msgID = b
		d.sum = crc16.Update(d.sum, []byte{b}, crcTable)
		if b == TunnelMsgID && d.length != msgLen {
			// Length field does not match the tunnel message definition.
			d.state = stateIdle
			break
		}
		if d.length == 0 {
			d.state = stateCRCLow
		} else {
			d.state = statePayload
		}
	case statePayload:
		d.payload = append(d.payload, b)
		d.sum = crc16.Update(d.sum, []byte{b}, crcTable)
		if len(d.payload) == int(d.length) {
			d.state = stateCRCLow
		}
	case stateCRCLow:
		d.crcLow = b
		d.state = stateCRCHigh
	case stateCRCHigh:
		d.state = stateIdle
		return d.complete(uint16(d.crcLow) | uint16(b)<<8)
	}
	return Frame{}, false
}

// complete finalizes the frame once both checksum bytes have arrived.
func (d *Decoder) complete(received uint16) (Frame, bool) {
	f := Frame{
		Seq:         d.seq,
		SystemID:    d.sysID,
		ComponentID: d.compID,
		MsgID:       d.msgID,
	}

	if d.msgID != TunnelMsgID {
		return f, true
	}

	sum := crc16.Update(d.sum, []byte{crcExtra}, crcTable)
	sum = crc16.Complete(sum, crcTable)
	if sum != received {
		return Frame{}, false
	}

	dataLen := int(d.payload[1])
	if dataLen > MaxPayload {
		return Frame{}, false
	}

	f.TID = d.payload[0]
	f.Payload = make([]byte, dataLen)
	copy(f.Payload, d.payload[2:2+dataLen])
	return f, true
}
