package depth

import (
	"fmt"
	"image"

	"go.uber.org/zap"
)

// mapDepthToByte maps the 0-8000mm range onto a byte in ModeScaled.
const mapDepthToByte = 8000 / 256

// Mode selects the per-pixel rule used by the converter.
type Mode int

const (
	// ModeRowDifference subtracts the already converted pixel one row above
	// from the current depth sample. Pixels with index <= width are left
	// untouched.
	ModeRowDifference Mode = iota
	// ModeDepthGradient subtracts the depth sample one row above.
	ModeDepthGradient
	// ModeScaled maps depth in the reliable range linearly onto 0-255.
	ModeScaled
)

func (m Mode) String() string {
	switch m {
	case ModeRowDifference:
		return "row-difference"
	case ModeDepthGradient:
		return "depth-gradient"
	case ModeScaled:
		return "scaled"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses the names returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{ModeRowDifference, ModeDepthGradient, ModeScaled} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown conversion mode %q", s)
}

// GateState records whether the converter has already processed a frame.
type GateState int

const (
	NotYetProcessed GateState = iota
	Processed
)

func (s GateState) String() string {
	if s == Processed {
		return "processed"
	}
	return "not-yet-processed"
}

// GatePolicy decides whether a converted frame closes the gate.
type GatePolicy int

const (
	// GateFirstFrame converts the first valid frame and drops every later one.
	GateFirstFrame GatePolicy = iota
	// GateEveryFrame never closes the gate.
	GateEveryFrame
)

// Outcome reports what Convert did with a frame.
type Outcome int

const (
	Converted Outcome = iota
	SkippedNilFrame
	SkippedDimensionMismatch
	SkippedAlreadyProcessed
)

// Processed reports whether the luminance buffer was written.
func (o Outcome) Processed() bool {
	return o == Converted
}

func (o Outcome) String() string {
	switch o {
	case Converted:
		return "converted"
	case SkippedNilFrame:
		return "skipped: nil frame"
	case SkippedDimensionMismatch:
		return "skipped: dimension mismatch"
	case SkippedAlreadyProcessed:
		return "skipped: already processed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Option configures a Converter.
type Option func(*Converter)

// WithMode selects the conversion rule.
func WithMode(m Mode) Option {
	return func(c *Converter) {
		c.mode = m
	}
}

// WithGatePolicy selects whether only the first frame is converted.
func WithGatePolicy(p GatePolicy) Option {
	return func(c *Converter) {
		c.policy = p
	}
}

// WithReliableMax makes ModeScaled drop samples above the frame's
// MaxReliableDepth instead of keeping the whole 16-bit range.
func WithReliableMax() Option {
	return func(c *Converter) {
		c.reliableMax = true
	}
}

// Converter turns depth frames into a luminance buffer it owns. It is not
// safe for concurrent use; frames must be delivered one at a time.
type Converter struct {
	desc    Descriptor
	surface image.Point

	mode        Mode
	policy      GatePolicy
	reliableMax bool

	state GateState
	lum   *Luminance

	logger *zap.SugaredLogger
}

// NewConverter sizes the luminance buffer from desc. surface is the size of
// the display the buffer is rendered to; frames are only converted when it
// matches the frame size.
func NewConverter(desc Descriptor, surface image.Point, logger *zap.SugaredLogger, opts ...Option) (*Converter, error) {
	if err := desc.validate(); err != nil {
		return nil, fmt.Errorf("could not create converter: %w", err)
	}

	c := &Converter{
		desc:    desc,
		surface: surface,
		lum:     NewLuminance(desc.Width, desc.Height),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// State returns the gate state.
func (c *Converter) State() GateState {
	return c.state
}

// Mode returns the conversion rule in use.
func (c *Converter) Mode() Mode {
	return c.mode
}

// Luminance returns the buffer written by Convert. It must only be read
// between calls to Convert.
func (c *Converter) Luminance() *Luminance {
	return c.lum
}

// Convert writes frame into the luminance buffer. Frames that cannot be
// converted are skipped without touching the buffer.
func (c *Converter) Convert(frame *Frame) Outcome {
	outcome := c.convert(frame)
	if !outcome.Processed() {
		c.logger.Debugw("depth frame skipped", "outcome", outcome.String())
	}
	return outcome
}

func (c *Converter) convert(frame *Frame) Outcome {
	if c.state == Processed {
		return SkippedAlreadyProcessed
	}
	if frame == nil {
		return SkippedNilFrame
	}
	if !c.compatible(frame) {
		return SkippedDimensionMismatch
	}

	switch c.mode {
	case ModeDepthGradient:
		c.depthGradient(frame.samples)
	case ModeScaled:
		maxDepth := uint16(0xFFFF)
		if c.reliableMax {
			maxDepth = frame.MaxReliableDepth
		}
		c.scaled(frame.samples, frame.MinReliableDepth, maxDepth)
	default:
		c.rowDifference(frame.samples)
	}

	if c.policy == GateFirstFrame {
		c.state = Processed
	}

	return Converted
}

func (c *Converter) compatible(frame *Frame) bool {
	if frame.Width != c.desc.Width || frame.Height != c.desc.Height {
		return false
	}
	if frame.Width != c.surface.X || frame.Height != c.surface.Y {
		return false
	}
	if frame.Validate() != nil {
		return false
	}
	return len(c.lum.Pix) == len(frame.samples)
}

func (c *Converter) rowDifference(samples []uint16) {
	width, height := c.desc.Width, c.desc.Height
	pix := c.lum.Pix

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if i > width {
				pix[i] = uint8(absDiff(int(samples[i]), int(pix[i-width])))
			}
		}
	}
}

func (c *Converter) depthGradient(samples []uint16) {
	width, height := c.desc.Width, c.desc.Height
	pix := c.lum.Pix

	for y := 1; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			pix[i] = uint8(absDiff(int(samples[i]), int(samples[i-width])))
		}
	}
}

func (c *Converter) scaled(samples []uint16, minDepth, maxDepth uint16) {
	pix := c.lum.Pix

	for i, d := range samples {
		if d >= minDepth && d <= maxDepth {
			pix[i] = uint8(d / mapDepthToByte)
		} else {
			pix[i] = 0
		}
	}
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
