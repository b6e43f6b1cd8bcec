package depthstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"essaim.dev/depthbasics/depth"
)

const (
	headerSize = 4 + 16 + 4 + 2 + 2
	metaSize   = 2 + 2 + 2 + 2 + 8

	maxChunkPayload = 32 * 1024
	maxDatagramSize = headerSize + maxChunkPayload

	maxFrameSamples = 4096 * 4096
)

var magic = [4]byte{'D', 'P', 'T', 'H'}

// ErrMalformedChunk is returned for datagrams that are not depth stream
// chunks.
var ErrMalformedChunk = errors.New("malformed depth stream chunk")

// chunkHeader prefixes every datagram:
//
//	magic "DPTH" | stream uuid | sequence u32 | index u16 | count u16
type chunkHeader struct {
	stream uuid.UUID
	seq    uint32
	index  uint16
	count  uint16
}

func (h chunkHeader) put(b []byte) {
	copy(b[0:4], magic[:])
	copy(b[4:20], h.stream[:])
	binary.BigEndian.PutUint32(b[20:24], h.seq)
	binary.BigEndian.PutUint16(b[24:26], h.index)
	binary.BigEndian.PutUint16(b[26:28], h.count)
}

func parseChunk(b []byte) (chunkHeader, []byte, error) {
	if len(b) < headerSize || [4]byte(b[0:4]) != magic {
		return chunkHeader{}, nil, ErrMalformedChunk
	}

	h := chunkHeader{
		seq:   binary.BigEndian.Uint32(b[20:24]),
		index: binary.BigEndian.Uint16(b[24:26]),
		count: binary.BigEndian.Uint16(b[26:28]),
	}
	copy(h.stream[:], b[4:20])

	if h.count == 0 || h.index >= h.count {
		return chunkHeader{}, nil, fmt.Errorf("chunk %d of %d: %w", h.index, h.count, ErrMalformedChunk)
	}

	return h, b[headerSize:], nil
}

// splitChunks cuts payload into datagrams ready to be sent.
func splitChunks(stream uuid.UUID, seq uint32, payload []byte) ([][]byte, error) {
	count := (len(payload) + maxChunkPayload - 1) / maxChunkPayload
	if count == 0 {
		count = 1
	}
	if count > 0xFFFF {
		return nil, fmt.Errorf("payload of %d bytes needs too many chunks", len(payload))
	}

	datagrams := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		part := payload[i*maxChunkPayload : min((i+1)*maxChunkPayload, len(payload))]

		b := make([]byte, headerSize+len(part))
		chunkHeader{stream: stream, seq: seq, index: uint16(i), count: uint16(count)}.put(b)
		copy(b[headerSize:], part)

		datagrams = append(datagrams, b)
	}

	return datagrams, nil
}

// encodeFrame lays a frame out as little endian
// width u16 | height u16 | min u16 | max u16 | timestamp i64 | samples.
func encodeFrame(f *depth.Frame) []byte {
	samples := f.Samples()

	b := make([]byte, metaSize+2*f.Len())
	binary.LittleEndian.PutUint16(b[0:2], uint16(f.Width))
	binary.LittleEndian.PutUint16(b[2:4], uint16(f.Height))
	binary.LittleEndian.PutUint16(b[4:6], f.MinReliableDepth)
	binary.LittleEndian.PutUint16(b[6:8], f.MaxReliableDepth)
	binary.LittleEndian.PutUint64(b[8:16], uint64(f.Timestamp.UnixNano()))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[metaSize+2*i:], s)
	}

	return b
}

func decodeFrame(b []byte, seq uint32) (*depth.Frame, error) {
	if len(b) < metaSize {
		return nil, fmt.Errorf("frame of %d bytes is shorter than its header", len(b))
	}

	width := int(binary.LittleEndian.Uint16(b[0:2]))
	height := int(binary.LittleEndian.Uint16(b[2:4]))
	minDepth := binary.LittleEndian.Uint16(b[4:6])
	maxDepth := binary.LittleEndian.Uint16(b[6:8])
	ts := int64(binary.LittleEndian.Uint64(b[8:16]))

	data := b[metaSize:]
	if len(data) != 2*width*height {
		return nil, fmt.Errorf("got %d sample bytes for %dx%d", len(data), width, height)
	}

	samples := make([]uint16, width*height)
	for i := range samples {
		samples[i] = binary.LittleEndian.Uint16(data[2*i:])
	}

	f := depth.NewFrame(width, height, samples, minDepth, maxDepth)
	f.Sequence = seq
	f.Timestamp = time.Unix(0, ts)

	return f, nil
}

// assembler rebuilds one frame at a time from its chunks. A chunk of a newer
// frame, or from another stream, discards the frame in progress.
type assembler struct {
	started  bool
	stream   uuid.UUID
	seq      uint32
	complete bool
	parts    [][]byte
	received int
}

func (a *assembler) add(h chunkHeader, payload []byte) ([]byte, bool) {
	switch {
	case !a.started || h.stream != a.stream:
		a.reset(h)
	case h.seq == a.seq:
		if a.complete || int(h.count) != len(a.parts) {
			return nil, false
		}
	case int32(h.seq-a.seq) < 0:
		// Late chunk of an older frame.
		return nil, false
	default:
		a.reset(h)
	}

	if a.parts[h.index] == nil {
		a.parts[h.index] = append([]byte{}, payload...)
		a.received++
	}

	if a.received < len(a.parts) {
		return nil, false
	}

	size := 0
	for _, p := range a.parts {
		size += len(p)
	}
	out := make([]byte, 0, size)
	for _, p := range a.parts {
		out = append(out, p...)
	}

	a.complete = true
	a.parts = nil

	return out, true
}

func (a *assembler) reset(h chunkHeader) {
	a.started = true
	a.stream = h.stream
	a.seq = h.seq
	a.complete = false
	a.parts = make([][]byte, h.count)
	a.received = 0
}
