package mavlink_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavconn/mavconn/mavlink"
)

// decodeAll feeds raw bytes through a fresh decoder and collects every
// frame it emits.
func decodeAll(d *mavlink.Decoder, raw []byte) []mavlink.Frame {
	var frames []mavlink.Frame
	for _, b := range raw {
		if f, ok := d.ParseByte(b); ok {
			frames = append(frames, f)
		}
	}
	return frames
}

func TestRoundTrip(t *testing.T) {
	payload := []byte("hello over the wire")
	raw := mavlink.Encode(7, payload, 3, 1, 42)
	require.Len(t, raw, mavlink.FrameLen)

	var d mavlink.Decoder
	frames := decodeAll(&d, raw)
	require.Len(t, frames, 1)

	f := frames[0]
	assert.Equal(t, uint8(mavlink.TunnelMsgID), f.MsgID)
	assert.Equal(t, uint8(7), f.TID)
	assert.Equal(t, uint8(3), f.SystemID)
	assert.Equal(t, uint8(1), f.ComponentID)
	assert.Equal(t, uint8(42), f.Seq)
	assert.Equal(t, payload, f.Payload)
}

func TestRoundTripEmptyPayload(t *testing.T) {
	raw := mavlink.Encode(0, nil, 1, 1, 0)

	var d mavlink.Decoder
	frames := decodeAll(&d, raw)
	require.Len(t, frames, 1)
	assert.Empty(t, frames[0].Payload)
}

func TestOversizePayloadTruncated(t *testing.T) {
	big := make([]byte, 3*mavlink.MaxPayload)
	for i := range big {
		big[i] = byte(i)
	}

	raw := mavlink.Encode(9, big, 1, 1, 0)
	require.Len(t, raw, mavlink.FrameLen)

	var d mavlink.Decoder
	frames := decodeAll(&d, raw)
	require.Len(t, frames, 1)
	assert.Equal(t, big[:mavlink.MaxPayload], frames[0].Payload)
}

// A frame split into chunks of any size must decode identically to the
// frame fed in one piece.
func TestChunkedDelivery(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0xFE, 0x01}
	raw := mavlink.Encode(4, payload, 2, 2, 9)

	for chunk := 1; chunk <= len(raw); chunk++ {
		var d mavlink.Decoder
		var frames []mavlink.Frame
		for off := 0; off < len(raw); off += chunk {
			end := off + chunk
			if end > len(raw) {
				end = len(raw)
			}
			frames = append(frames, decodeAll(&d, raw[off:end])...)
		}

		require.Lenf(t, frames, 1, "chunk size %d", chunk)
		assert.Equal(t, payload, frames[0].Payload)
		assert.Equal(t, uint8(4), frames[0].TID)
	}
}

// Line noise ahead of a valid frame must produce no frames and must not
// prevent the valid frame from decoding. The noise avoids the start
// marker; a marker inside noise can legitimately swallow the next frame,
// which the protocol recovers from on later traffic.
func TestGarbageThenValid(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	noise := make([]byte, 128)
	for i := range noise {
		noise[i] = byte(rng.Intn(0xFE))
	}

	payload := []byte("still here")
	raw := mavlink.Encode(1, payload, 5, 5, 0)

	var d mavlink.Decoder
	frames := decodeAll(&d, append(noise, raw...))
	require.Len(t, frames, 1)
	assert.Equal(t, payload, frames[0].Payload)
}

// A corrupted frame is dropped silently and the decoder resyncs on the
// next valid frame.
func TestCorruptFrameRejected(t *testing.T) {
	bad := mavlink.Encode(2, []byte("corrupt me"), 1, 1, 0)
	bad[10] ^= 0xFF
	good := mavlink.Encode(2, []byte("intact"), 1, 1, 1)

	var d mavlink.Decoder
	frames := decodeAll(&d, append(bad, good...))
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("intact"), frames[0].Payload)
	assert.Equal(t, uint8(1), frames[0].Seq)
}

// Frames of other message types complete structurally so the link can log
// and drop them, but they carry no payload.
func TestForeignMessageID(t *testing.T) {
	raw := []byte{0xFE, 2, 0, 1, 1, 11, 0xAA, 0xBB, 0x00, 0x00}

	var d mavlink.Decoder
	frames := decodeAll(&d, raw)
	require.Len(t, frames, 1)
	assert.Equal(t, uint8(11), frames[0].MsgID)
	assert.Nil(t, frames[0].Payload)
}
