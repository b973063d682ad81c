// Package software implements ibl.Device on the CPU. Each draw rasterises
// the attached face or image texel by texel, evaluating the capture
// program's kernel for the direction (or uv) at the texel centre.
package software

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"pbr-engine/ibl"
)

var (
	ErrUnknownHandle = errors.New("unknown handle")
	ErrSizeMismatch  = errors.New("capture depth size does not match attachment")
	ErrVertexLayout  = errors.New("vertex input not fed by geometry")
)

// program is a capture program with the vertex inputs its source declares.
type program struct {
	src    ibl.ProgramSource
	inputs []vertexInput
}

// varying returns the non-position input the quad kernel reads.
func (p program) varying() (vertexInput, bool) {
	for _, in := range p.inputs {
		if in.Location != ibl.AttribPosition {
			return in, true
		}
	}
	return vertexInput{}, false
}

type texture struct {
	desc ibl.TextureDesc
	cube *ibl.Cubemap
	flat []*ibl.Surface
}

func (t *texture) surface(face ibl.CubeFace, level int) (*ibl.Surface, error) {
	if level < 0 || level >= t.desc.Levels {
		return nil, fmt.Errorf("level %d out of range for %q (%d levels)", level, t.desc.Label, t.desc.Levels)
	}
	if t.cube != nil {
		return t.cube.Face(level, face), nil
	}
	return t.flat[level], nil
}

type target struct {
	depthSize int
	att       ibl.Attachment
	attached  bool
}

// State is the emulated fixed-function state touched by captures.
type State struct {
	Seamless    bool
	CullFront   bool
	BoundTarget ibl.Handle
	Viewport    int
}

// Device is a CPU ibl.Device. It is not safe for concurrent use; draws
// fan out across Workers goroutines internally.
type Device struct {
	Workers int

	next      ibl.Handle
	textures  map[ibl.Handle]*texture
	panoramas map[ibl.Handle]*ibl.Panorama
	programs  map[ibl.Handle]program
	targets   map[ibl.Handle]*target

	state          State
	windowViewport int
}

// New returns an empty device. windowSize is the viewport restored by
// RestoreDefaultTarget.
func New(windowSize int) *Device {
	return &Device{
		Workers:        runtime.GOMAXPROCS(0),
		textures:       make(map[ibl.Handle]*texture),
		panoramas:      make(map[ibl.Handle]*ibl.Panorama),
		programs:       make(map[ibl.Handle]program),
		targets:        make(map[ibl.Handle]*target),
		windowViewport: windowSize,
		state:          State{Viewport: windowSize},
	}
}

func (d *Device) alloc() ibl.Handle {
	d.next++
	return d.next
}

// State returns the emulated GPU state.
func (d *Device) State() State { return d.state }

func (d *Device) BuildProgram(src ibl.ProgramSource) (ibl.Handle, error) {
	switch src.Kind {
	case ibl.ProgramEquirect, ibl.ProgramIrradiance, ibl.ProgramPrefilter, ibl.ProgramBRDF:
	default:
		return 0, &ibl.ProgramError{Program: src.Kind, Stage: "link", Log: "no kernel for program"}
	}
	if src.Kind == ibl.ProgramIrradiance && src.SampleDelta <= 0 {
		return 0, &ibl.ProgramError{Program: src.Kind, Stage: "fragment", Log: "SAMPLE_DELTA must be positive"}
	}
	if (src.Kind == ibl.ProgramPrefilter || src.Kind == ibl.ProgramBRDF) && src.SampleCount <= 0 {
		return 0, &ibl.ProgramError{Program: src.Kind, Stage: "fragment", Log: "SAMPLE_COUNT must be positive"}
	}
	inputs, err := vertexInputs(src)
	if err != nil {
		return 0, &ibl.ProgramError{Program: src.Kind, Stage: "vertex", Log: err.Error()}
	}
	h := d.alloc()
	d.programs[h] = program{src: src, inputs: inputs}
	return h, nil
}

func (d *Device) CreateTexture(desc ibl.TextureDesc) (ibl.Handle, error) {
	if desc.Size <= 0 || desc.Levels <= 0 {
		return 0, fmt.Errorf("%w: %q size %d levels %d", ibl.ErrAllocation, desc.Label, desc.Size, desc.Levels)
	}
	t := &texture{desc: desc}
	ch := desc.Format.Channels()
	if desc.Kind == ibl.TextureCube {
		t.cube = ibl.NewCubemap(desc.Size, desc.Levels, ch)
	} else {
		for l := 0; l < desc.Levels; l++ {
			s := ibl.LevelSize(desc.Size, l)
			t.flat = append(t.flat, ibl.NewSurface(s, s, ch))
		}
	}
	h := d.alloc()
	d.textures[h] = t
	return h, nil
}

func (d *Device) UploadPanorama(p *ibl.Panorama) (ibl.Handle, error) {
	if p == nil || p.Surface == nil {
		return 0, ibl.ErrPanorama
	}
	h := d.alloc()
	d.panoramas[h] = p
	return h, nil
}

func (d *Device) CreateCaptureTarget() (ibl.Handle, error) {
	h := d.alloc()
	d.targets[h] = &target{}
	return h, nil
}

func (d *Device) ResizeCapture(h ibl.Handle, size int) error {
	t, ok := d.targets[h]
	if !ok {
		return fmt.Errorf("capture target %d: %w", h, ErrUnknownHandle)
	}
	if size <= 0 {
		return fmt.Errorf("%w: capture size %d", ibl.ErrAllocation, size)
	}
	t.depthSize = size
	d.state.BoundTarget = h
	d.state.Viewport = size
	return nil
}

func (d *Device) Attach(h ibl.Handle, att ibl.Attachment) error {
	t, ok := d.targets[h]
	if !ok {
		return fmt.Errorf("capture target %d: %w", h, ErrUnknownHandle)
	}
	tex, ok := d.textures[att.Texture]
	if !ok {
		return fmt.Errorf("attachment texture %d: %w", att.Texture, ErrUnknownHandle)
	}
	if _, err := tex.surface(att.Face, att.Level); err != nil {
		return err
	}
	t.att = att
	t.attached = true
	return nil
}

func (d *Device) Clear(h ibl.Handle) error {
	dst, err := d.attachment(h)
	if err != nil {
		return err
	}
	clear(dst.Pix)
	return nil
}

func (d *Device) attachment(h ibl.Handle) (*ibl.Surface, error) {
	t, ok := d.targets[h]
	if !ok {
		return nil, fmt.Errorf("capture target %d: %w", h, ErrUnknownHandle)
	}
	if !t.attached {
		return nil, fmt.Errorf("capture target %d has no colour attachment", h)
	}
	dst, err := d.textures[t.att.Texture].surface(t.att.Face, t.att.Level)
	if err != nil {
		return nil, err
	}
	if dst.Width != t.depthSize || d.state.Viewport != t.depthSize {
		return nil, fmt.Errorf("%w: depth %d, viewport %d, attachment %d", ErrSizeMismatch, t.depthSize, d.state.Viewport, dst.Width)
	}
	return dst, nil
}

// Draw rasterises the call's geometry into the attachment. Triangles are
// culled by winding under the geometry's cull mode, and texels no
// surviving triangle covers keep their clear value.
func (d *Device) Draw(h ibl.Handle, call ibl.DrawCall) error {
	if d.state.BoundTarget != h {
		return fmt.Errorf("draw into target %d while %d is bound", h, d.state.BoundTarget)
	}
	dst, err := d.attachment(h)
	if err != nil {
		return err
	}
	prog, ok := d.programs[call.Program]
	if !ok {
		return fmt.Errorf("program %d: %w", call.Program, ErrUnknownHandle)
	}
	m, ok := captureMeshes[call.Geometry]
	if !ok {
		return fmt.Errorf("geometry %d: %w", call.Geometry, ErrUnknownHandle)
	}
	if err := m.checkInputs(prog.inputs); err != nil {
		return fmt.Errorf("%s program: %w", prog.src.Kind, err)
	}
	shade, err := d.kernel(prog.src, call)
	if err != nil {
		return err
	}

	d.state.CullFront = call.Geometry.CullFront()

	// The quad is submitted in clip space.
	mvp := mgl32.Ident4()
	if call.Geometry == ibl.GeometryCube {
		mvp = call.Uniforms.Projection.Mul4(call.Uniforms.View)
	}
	tris := m.setup(mvp, d.state.CullFront)
	if len(tris) == 0 {
		return nil
	}

	var input func(ndc mgl32.Vec2, t screenTri, w mgl32.Vec3) mgl32.Vec3
	if call.Geometry == ibl.GeometryCube {
		inv := mvp.Inv()
		input = func(ndc mgl32.Vec2, _ screenTri, _ mgl32.Vec3) mgl32.Vec3 {
			p := inv.Mul4x1(mgl32.Vec4{ndc[0], ndc[1], 1, 1})
			return p.Vec3().Mul(1 / p.W()).Normalize()
		}
	} else {
		in, ok := prog.varying()
		if !ok {
			return fmt.Errorf("%w: %s program reads no texture coordinate", ErrVertexLayout, prog.src.Kind)
		}
		uv, _ := m.attribute(in.Location)
		input = func(_ mgl32.Vec2, t screenTri, w mgl32.Vec3) mgl32.Vec3 {
			return m.interpolate(t, w, uv).Vec3()
		}
	}

	var g errgroup.Group
	g.SetLimit(max(d.Workers, 1))
	for y := 0; y < dst.Height; y++ {
		g.Go(func() error {
			for x := 0; x < dst.Width; x++ {
				ndc := mgl32.Vec2{
					2*(float32(x)+0.5)/float32(dst.Width) - 1,
					2*(float32(y)+0.5)/float32(dst.Height) - 1,
				}
				t, w, ok := cover(tris, ndc)
				if !ok {
					continue
				}
				dst.Set(x, y, shade(input(ndc, t, w)))
			}
			return nil
		})
	}
	return g.Wait()
}

// kernel binds a program to its draw inputs and returns the per-texel
// shading function. For cube geometry the input is a world direction, for
// the quad it is (u, v, 0).
func (d *Device) kernel(prog ibl.ProgramSource, call ibl.DrawCall) (func(mgl32.Vec3) mgl32.Vec3, error) {
	switch prog.Kind {
	case ibl.ProgramEquirect:
		pano, ok := d.panoramas[call.Source]
		if !ok {
			return nil, fmt.Errorf("panorama %d: %w", call.Source, ErrUnknownHandle)
		}
		return func(dir mgl32.Vec3) mgl32.Vec3 { return ibl.ProjectTexel(pano, dir) }, nil

	case ibl.ProgramIrradiance:
		env, err := d.cube(call.Source)
		if err != nil {
			return nil, err
		}
		return func(dir mgl32.Vec3) mgl32.Vec3 {
			return ibl.IrradianceTexel(env, dir, prog.SampleDelta)
		}, nil

	case ibl.ProgramPrefilter:
		env, err := d.cube(call.Source)
		if err != nil {
			return nil, err
		}
		roughness := call.Uniforms.Roughness
		return func(dir mgl32.Vec3) mgl32.Vec3 {
			return ibl.PrefilterTexel(env, dir, roughness, prog.SampleCount)
		}, nil

	case ibl.ProgramBRDF:
		return func(uv mgl32.Vec3) mgl32.Vec3 {
			a, b := ibl.IntegrateBRDF(uv[0], uv[1], prog.SampleCount)
			return mgl32.Vec3{a, b, 0}
		}, nil
	}
	return nil, fmt.Errorf("program kind %s: %w", prog.Kind, ErrUnknownHandle)
}

func (d *Device) cube(h ibl.Handle) (*ibl.Cubemap, error) {
	t, ok := d.textures[h]
	if !ok || t.cube == nil {
		return nil, fmt.Errorf("cubemap %d: %w", h, ErrUnknownHandle)
	}
	return t.cube, nil
}

func (d *Device) RestoreDefaultTarget() {
	d.state.BoundTarget = 0
	d.state.Viewport = d.windowViewport
}

func (d *Device) GenerateMipmaps(h ibl.Handle) error {
	t, ok := d.textures[h]
	if !ok {
		return fmt.Errorf("texture %d: %w", h, ErrUnknownHandle)
	}
	if t.cube != nil {
		t.cube.GenerateMipmaps()
		return nil
	}
	for l := 1; l < len(t.flat); l++ {
		t.flat[l] = t.flat[l-1].Downsample()
	}
	return nil
}

// PushCaptureState enables seamless filtering. Draw sets the cull mode per
// geometry; the returned func restores both.
func (d *Device) PushCaptureState() func() {
	prev := d.state
	d.state.Seamless = true
	return func() {
		d.state.Seamless = prev.Seamless
		d.state.CullFront = prev.CullFront
	}
}

func (d *Device) Release(h ibl.Handle) {
	delete(d.textures, h)
	delete(d.panoramas, h)
	delete(d.programs, h)
	delete(d.targets, h)
}

// Cubemap exposes the CPU storage of a cube texture for readback.
func (d *Device) Cubemap(h ibl.Handle) (*ibl.Cubemap, error) { return d.cube(h) }

// Image exposes one level of a 2D texture for readback.
func (d *Device) Image(h ibl.Handle, level int) (*ibl.Surface, error) {
	t, ok := d.textures[h]
	if !ok || t.cube != nil {
		return nil, fmt.Errorf("2d texture %d: %w", h, ErrUnknownHandle)
	}
	return t.surface(0, level)
}

// Live reports how many resources are currently allocated.
func (d *Device) Live() int {
	return len(d.textures) + len(d.panoramas) + len(d.programs) + len(d.targets)
}

// Desc returns the allocation parameters of a texture.
func (d *Device) Desc(h ibl.Handle) (ibl.TextureDesc, bool) {
	t, ok := d.textures[h]
	if !ok {
		return ibl.TextureDesc{}, false
	}
	return t.desc, true
}
