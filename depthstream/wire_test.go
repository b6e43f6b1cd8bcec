package depthstream

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"essaim.dev/depthbasics/depth"
)

func randomFrame(width, height int) *depth.Frame {
	rng := rand.New(rand.NewSource(42))

	samples := make([]uint16, width*height)
	for i := range samples {
		samples[i] = uint16(rng.Intn(8000))
	}

	f := depth.NewFrame(width, height, samples, 500, 4500)
	f.Timestamp = time.Unix(1700000000, 1234)
	return f
}

func TestFrameEncoding(t *testing.T) {
	in := randomFrame(16, 9)

	out, err := decodeFrame(encodeFrame(in), 7)
	require.NoError(t, err)

	assert.Equal(t, in.Width, out.Width)
	assert.Equal(t, in.Height, out.Height)
	assert.Equal(t, in.MinReliableDepth, out.MinReliableDepth)
	assert.Equal(t, in.MaxReliableDepth, out.MaxReliableDepth)
	assert.True(t, in.Timestamp.Equal(out.Timestamp))
	assert.Equal(t, uint32(7), out.Sequence)
	assert.Equal(t, in.Samples(), out.Samples())
}

func TestDecodeFrameRejectsShortData(t *testing.T) {
	b := encodeFrame(randomFrame(4, 4))

	_, err := decodeFrame(b[:len(b)-2], 0)
	assert.Error(t, err)

	_, err = decodeFrame(b[:3], 0)
	assert.Error(t, err)
}

func TestChunksReassembleOutOfOrder(t *testing.T) {
	stream := uuid.New()
	payload := encodeFrame(randomFrame(640, 480))

	datagrams, err := splitChunks(stream, 3, payload)
	require.NoError(t, err)
	require.Greater(t, len(datagrams), 1)

	rand.New(rand.NewSource(1)).Shuffle(len(datagrams), func(i, j int) {
		datagrams[i], datagrams[j] = datagrams[j], datagrams[i]
	})

	var a assembler
	var got []byte
	for i, d := range datagrams {
		h, part, err := parseChunk(d)
		require.NoError(t, err)
		assert.Equal(t, stream, h.stream)

		out, ok := a.add(h, part)
		if i < len(datagrams)-1 {
			require.False(t, ok)
			continue
		}
		require.True(t, ok)
		got = out
	}

	assert.Equal(t, payload, got)

	// A duplicate of a completed frame is ignored.
	h, part, err := parseChunk(datagrams[0])
	require.NoError(t, err)
	_, ok := a.add(h, part)
	assert.False(t, ok)
}

func TestAssemblerDropsIncompleteFrame(t *testing.T) {
	stream := uuid.New()

	older, err := splitChunks(stream, 1, make([]byte, 2*maxChunkPayload))
	require.NoError(t, err)
	newer, err := splitChunks(stream, 2, []byte{1, 2, 3})
	require.NoError(t, err)

	var a assembler
	add := func(d []byte) ([]byte, bool) {
		h, part, err := parseChunk(d)
		require.NoError(t, err)
		return a.add(h, part)
	}

	_, ok := add(older[0])
	require.False(t, ok)

	out, ok := add(newer[0])
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, out)

	// The rest of the older frame arrives late and is dropped.
	_, ok = add(older[1])
	assert.False(t, ok)
}

func TestAssemblerResetsOnNewStream(t *testing.T) {
	first, err := splitChunks(uuid.New(), 100, make([]byte, 2*maxChunkPayload))
	require.NoError(t, err)
	second, err := splitChunks(uuid.New(), 0, []byte{9})
	require.NoError(t, err)

	var a assembler
	h, part, err := parseChunk(first[0])
	require.NoError(t, err)
	_, ok := a.add(h, part)
	require.False(t, ok)

	h, part, err = parseChunk(second[0])
	require.NoError(t, err)
	out, ok := a.add(h, part)
	require.True(t, ok)
	assert.Equal(t, []byte{9}, out)
}

func TestParseChunkMalformed(t *testing.T) {
	_, _, err := parseChunk([]byte("DPTH"))
	assert.ErrorIs(t, err, ErrMalformedChunk)

	b := make([]byte, headerSize)
	_, _, err = parseChunk(b)
	assert.ErrorIs(t, err, ErrMalformedChunk)

	chunkHeader{stream: uuid.New(), index: 2, count: 2}.put(b)
	_, _, err = parseChunk(b)
	assert.ErrorIs(t, err, ErrMalformedChunk)
}

func TestClientHandleDatagram(t *testing.T) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	require.NoError(t, err)
	defer encoder.Close()

	decoder, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer decoder.Close()

	s := &Server{encoder: encoder, stream: uuid.New(), logger: zaptest.NewLogger(t).Sugar()}
	c := &Client{decoder: decoder, logger: zaptest.NewLogger(t).Sugar(), frames: make(chan *depth.Frame, 1)}

	in := randomFrame(640, 480)
	datagrams, err := s.encode(in)
	require.NoError(t, err)

	var got *depth.Frame
	for _, d := range datagrams {
		if f, ok := c.handleDatagram(d); ok {
			got = f
		}
	}

	require.NotNil(t, got)
	assert.Equal(t, in.Samples(), got.Samples())
	assert.Equal(t, uint32(0), got.Sequence)

	_, ok := c.handleDatagram([]byte("not a chunk"))
	assert.False(t, ok)
}

func TestClientPushKeepsLatest(t *testing.T) {
	c := &Client{frames: make(chan *depth.Frame, 1)}

	first := depth.NewFrame(1, 1, []uint16{1}, 0, 0)
	second := depth.NewFrame(1, 1, []uint16{2}, 0, 0)
	c.push(first)
	c.push(second)

	assert.Same(t, second, <-c.frames)
}
