// Package mavlink implements the small subset of MAVLink v1 framing used
// by the tunnel link: encoding complete tunnel frames and reconstructing
// them incrementally from a raw serial byte stream.
package mavlink

import "github.com/sigurn/crc16"

// Wire framing constants.
const (
	magic = 0xFE // v1 frame start marker

	// TunnelMsgID identifies the tunnel message carrying tagged opaque
	// payloads. Frames with any other message id are parsed structurally
	// and left to the caller to drop.
	TunnelMsgID = 227

	// MaxPayload is the data capacity of one tunnel frame. Encode
	// truncates longer payloads to this size.
	MaxPayload = 64

	// Tunnel message body on the wire: tid, payload length, data buffer.
	msgLen = 2 + MaxPayload

	// Per-message checksum seed for the tunnel message definition.
	crcExtra = 92

	headerLen = 6

	// FrameLen is the size of one complete encoded tunnel frame.
	FrameLen = headerLen + msgLen + 2
)

var crcTable = crc16.MakeTable(crc16.CRC16_MCRF4XX)

// Frame is one message reconstructed from the wire. Payload is only
// populated for tunnel frames.
type Frame struct {
	Seq         uint8
	SystemID    uint8
	ComponentID uint8
	MsgID       uint8
	TID         uint8
	Payload     []byte
}

// Encode builds one complete tunnel frame carrying payload under tag tid,
// stamped with the sender identity and sequence number. It never fails:
// payloads longer than MaxPayload are truncated, shorter ones are zero
// padded on the wire.
func Encode(tid uint8, payload []byte, sysID, compID, seq uint8) []byte {
	if len(payload) > MaxPayload {
		payload = payload[:MaxPayload]
	}

	f := make([]byte, 0, FrameLen)
	f = append(f, magic, msgLen, seq, sysID, compID, TunnelMsgID)
	f = append(f, tid, byte(len(payload)))
	f = append(f, payload...)
	f = append(f, make([]byte, MaxPayload-len(payload))...)

	// Checksum covers everything after the start marker, plus the
	// message's crc seed.
	sum := crc16.Init(crcTable)
	sum = crc16.Update(sum, f[1:], crcTable)
	sum = crc16.Update(sum, []byte{crcExtra}, crcTable)
	sum = crc16.Complete(sum, crcTable)

	return append(f, byte(sum), byte(sum>>8))
}
