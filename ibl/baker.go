// Package ibl precomputes the image-based lighting inputs of the PBR
// shader: an environment cubemap projected from an equirectangular
// panorama, its diffuse irradiance convolution, a roughness mip chain of
// GGX-prefiltered reflections and the split-sum BRDF lookup table.
package ibl

import (
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// State is the bake lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateCapturingProjector
	StateCapturingIrradiance
	StateCapturingPrefilter
	StateCapturingBRDF
	StateReady
	StateFailed
)

var stateNames = [...]string{
	StateUninitialized:       "uninitialized",
	StateCapturingProjector:  "capturing/projector",
	StateCapturingIrradiance: "capturing/irradiance",
	StateCapturingPrefilter:  "capturing/prefilter",
	StateCapturingBRDF:       "capturing/brdf",
	StateReady:               "ready",
	StateFailed:              "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Capturing reports whether s is one of the pass states.
func (s State) Capturing() bool {
	return s >= StateCapturingProjector && s <= StateCapturingBRDF
}

// Products are the baked textures handed to the lighting shader.
type Products struct {
	Environment     Handle
	Irradiance      Handle
	Prefilter       Handle
	PrefilterLevels int
	BRDFLUT         Handle
	BRDFLUTSize     int
}

// PassTiming records how long one capture pass took.
type PassTiming struct {
	Pass     State
	Duration time.Duration
}

// Option configures a Baker.
type Option func(*Baker)

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Baker) { b.log = l }
}

// WithPanorama sets the source panorama texture.
func WithPanorama(h Handle) Option {
	return func(b *Baker) { b.panorama = h }
}

// OnTransition registers a callback run on every state change.
func OnTransition(fn func(from, to State)) Option {
	return func(b *Baker) { b.observers = append(b.observers, fn) }
}

// Baker owns the bake products and the capture target and runs the capture
// passes once, on the first Update after construction or Reset.
type Baker struct {
	dev      Device
	settings Settings
	log      zerolog.Logger

	state State
	err   error

	panorama Handle
	target   Handle
	programs [programCount]Handle
	products Products
	timings  []PassTiming

	observers []func(from, to State)
}

// NewBaker validates settings, allocates the bake textures and capture
// target and builds the capture programs. Any failure here is fatal for
// image-based lighting; partially constructed resources are released.
func NewBaker(dev Device, settings Settings, opts ...Option) (*Baker, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	b := &Baker{
		dev:      dev,
		settings: settings,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	if err := b.allocate(); err != nil {
		b.Destroy()
		return nil, err
	}
	if err := b.buildPrograms(); err != nil {
		b.Destroy()
		return nil, err
	}

	b.log.Debug().
		Int("environment", settings.EnvironmentSize).
		Int("irradiance", settings.IrradianceSize).
		Int("prefilter", settings.PrefilterSize).
		Int("prefilter_levels", settings.PrefilterLevels).
		Int("brdf_lut", settings.BRDFLUTSize).
		Msg("ibl resources allocated")
	return b, nil
}

func (b *Baker) allocate() error {
	s := b.settings
	descs := []struct {
		dst  *Handle
		desc TextureDesc
	}{
		{&b.products.Environment, TextureDesc{Label: "environment", Kind: TextureCube, Size: s.EnvironmentSize, Levels: s.EnvironmentLevels(), Format: FormatRGB16F}},
		{&b.products.Irradiance, TextureDesc{Label: "irradiance", Kind: TextureCube, Size: s.IrradianceSize, Levels: 1, Format: FormatRGB16F}},
		{&b.products.Prefilter, TextureDesc{Label: "prefilter", Kind: TextureCube, Size: s.PrefilterSize, Levels: s.PrefilterLevels, Format: FormatRGB16F}},
		{&b.products.BRDFLUT, TextureDesc{Label: "brdf lut", Kind: Texture2D, Size: s.BRDFLUTSize, Levels: 1, Format: FormatRG16F}},
	}
	for _, d := range descs {
		h, err := b.dev.CreateTexture(d.desc)
		if err != nil {
			return fmt.Errorf("%s texture: %w", d.desc.Label, err)
		}
		*d.dst = h
	}
	b.products.PrefilterLevels = s.PrefilterLevels
	b.products.BRDFLUTSize = s.BRDFLUTSize

	target, err := b.dev.CreateCaptureTarget()
	if err != nil {
		return fmt.Errorf("capture target: %w", err)
	}
	b.target = target
	return nil
}

func (b *Baker) buildPrograms() error {
	for kind, src := range ProgramSources(b.settings) {
		h, err := b.dev.BuildProgram(src)
		if err != nil {
			return fmt.Errorf("%s program: %w", ProgramKind(kind), err)
		}
		b.programs[kind] = h
	}
	return nil
}

// State returns the current lifecycle state.
func (b *Baker) State() State { return b.state }

// Ready reports whether the products are valid.
func (b *Baker) Ready() bool { return b.state == StateReady }

// Err returns the error that moved the baker to StateFailed, if any.
func (b *Baker) Err() error { return b.err }

// Settings returns the bake configuration.
func (b *Baker) Settings() Settings { return b.settings }

// Timings returns the per-pass durations of the last bake.
func (b *Baker) Timings() []PassTiming { return slices.Clone(b.timings) }

// Products returns the baked textures. It fails unless the baker is Ready.
func (b *Baker) Products() (Products, error) {
	if b.state != StateReady {
		return Products{}, fmt.Errorf("%w: state %s", ErrNotReady, b.state)
	}
	return b.products, nil
}

// Environment returns the environment cubemap handle regardless of state,
// so callers can show it as a skybox in degraded mode.
func (b *Baker) Environment() Handle { return b.products.Environment }

// SetPanorama swaps the source panorama and schedules a re-bake.
func (b *Baker) SetPanorama(h Handle) {
	b.panorama = h
	b.Reset()
}

// Reset returns a Ready or Failed baker to Uninitialized so the next
// Update bakes again. It has no effect in other states.
func (b *Baker) Reset() {
	if b.state != StateReady && b.state != StateFailed {
		return
	}
	b.err = nil
	b.transition(StateUninitialized)
}

// Update is called once per frame. The first call after construction or
// Reset runs all capture passes; every later call returns immediately.
// A failure is returned exactly once and then kept in Err.
func (b *Baker) Update() error {
	if b.state != StateUninitialized {
		return nil
	}
	if err := b.capture(); err != nil {
		b.err = err
		b.transition(StateFailed)
		b.log.Error().Err(err).Msg("ibl bake failed")
		return err
	}
	return nil
}

func (b *Baker) capture() error {
	restore := b.dev.PushCaptureState()
	defer restore()

	s := b.settings
	p := b.products
	passes := []struct {
		state State
		run   func() error
	}{
		{StateCapturingProjector, func() error {
			return ProjectEquirect(b.dev, b.target, b.programs[ProgramEquirect], b.panorama, p.Environment, s.EnvironmentSize, s.EnvironmentLevels())
		}},
		{StateCapturingIrradiance, func() error {
			return ConvolveIrradiance(b.dev, b.target, b.programs[ProgramIrradiance], p.Environment, p.Irradiance, s.IrradianceSize)
		}},
		{StateCapturingPrefilter, func() error {
			return PrefilterSpecular(b.dev, b.target, b.programs[ProgramPrefilter], p.Environment, p.Prefilter, s.PrefilterSize, s.PrefilterLevels, s.EnvironmentSize)
		}},
		{StateCapturingBRDF, func() error {
			return IntegrateBRDFLUT(b.dev, b.target, b.programs[ProgramBRDF], p.BRDFLUT, s.BRDFLUTSize)
		}},
	}

	b.timings = b.timings[:0]
	total := time.Now()
	for _, pass := range passes {
		b.transition(pass.state)
		start := time.Now()
		if err := pass.run(); err != nil {
			return fmt.Errorf("%s: %w", pass.state, err)
		}
		d := time.Since(start)
		b.timings = append(b.timings, PassTiming{Pass: pass.state, Duration: d})
		b.log.Debug().Stringer("pass", pass.state).Dur("took", d).Msg("ibl pass done")
	}
	b.transition(StateReady)
	b.log.Info().Dur("took", time.Since(total)).Msg("ibl bake complete")
	return nil
}

func (b *Baker) transition(to State) {
	from := b.state
	b.state = to
	for _, fn := range b.observers {
		fn(from, to)
	}
}

// Destroy releases every resource the baker owns.
func (b *Baker) Destroy() {
	for i, h := range b.programs {
		if h != 0 {
			b.dev.Release(h)
			b.programs[i] = 0
		}
	}
	for _, h := range []*Handle{&b.products.Environment, &b.products.Irradiance, &b.products.Prefilter, &b.products.BRDFLUT, &b.target} {
		if *h != 0 {
			b.dev.Release(*h)
			*h = 0
		}
	}
}
