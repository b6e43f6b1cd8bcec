package display

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/size"

	"essaim.dev/depthbasics/depth"
	"essaim.dev/depthbasics/render"
)

func TestImagePoint(t *testing.T) {
	img := image.Pt(640, 480)
	sz := size.Event{WidthPx: 1280, HeightPx: 960}

	x, y, ok := imagePoint(mouse.Event{X: 640, Y: 100}, sz, img)
	require.True(t, ok)
	assert.Equal(t, 320, x)
	assert.Equal(t, 50, y)

	_, _, ok = imagePoint(mouse.Event{X: 1280, Y: 0}, sz, img)
	assert.False(t, ok)

	_, _, ok = imagePoint(mouse.Event{X: 1, Y: 1}, size.Event{}, img)
	assert.False(t, ok)
}

func TestShowQueuesUpload(t *testing.T) {
	w := New(image.Pt(2, 2), zaptest.NewLogger(t).Sugar(), WithFlip(render.FlipHorizontal))

	l := depth.NewLuminance(2, 2)
	copy(l.Pix, []uint8{10, 20, 30, 40})
	require.NoError(t, w.Show(l))

	e, ok := (<-w.events).(uploadEvent)
	require.True(t, ok)
	assert.Equal(t, uint8(20), e.Image.RGBAAt(0, 0).R)
	assert.Equal(t, uint8(10), e.Image.RGBAAt(1, 0).R)
}

func TestShowRejectsWrongSize(t *testing.T) {
	w := New(image.Pt(640, 480), zaptest.NewLogger(t).Sugar())
	assert.Error(t, w.Show(depth.NewLuminance(512, 424)))
}

func TestShowAfterClose(t *testing.T) {
	w := New(image.Pt(1, 1), zaptest.NewLogger(t).Sugar())
	w.Close()

	require.NoError(t, <-w.Stopped())

	// The event queue has room, a closed window must still refuse buffers.
	for i := 0; i < 100; i++ {
		require.Error(t, w.Show(depth.NewLuminance(1, 1)))
	}
	assert.Empty(t, w.events)

	w.SetStatus("Running")
	assert.Empty(t, w.events)
}

func TestSetStatus(t *testing.T) {
	w := New(image.Pt(1, 1), zaptest.NewLogger(t).Sugar())

	w.SetStatus("Running")
	assert.Equal(t, "Running", w.statusText())
	assert.IsType(t, statusEvent{}, <-w.events)
}
