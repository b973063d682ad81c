// Package opengl is the OpenGL 4.1 core backend: the GPU implementation of
// ibl.Device and the renderers that draw with the baked maps.
package opengl

import (
	"errors"
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/rs/zerolog"

	"pbr-engine/assets"
	"pbr-engine/ibl"
)

var (
	ErrUnknownHandle     = errors.New("unknown handle")
	ErrIncompleteCapture = errors.New("capture framebuffer incomplete")
)

type glTexture struct {
	id     uint32
	target uint32
	desc   ibl.TextureDesc
}

type captureTarget struct {
	fbo  uint32
	rbo  uint32
	size int
}

type captureProgram struct {
	prog    *Program
	kind    ibl.ProgramKind
	sampler string
}

// Device drives capture passes on the current GL context. All calls must
// be made from the thread that owns the context.
type Device struct {
	next     ibl.Handle
	textures map[ibl.Handle]*glTexture
	programs map[ibl.Handle]*captureProgram
	targets  map[ibl.Handle]*captureTarget

	cube *GPUMesh
	quad *GPUMesh

	windowSize func() (int, int)
	log        zerolog.Logger
}

// NewDevice uploads the capture geometry. windowSize reports the default
// framebuffer size restored after each pass.
func NewDevice(windowSize func() (int, int), log zerolog.Logger) (*Device, error) {
	cube, err := UploadMesh(assets.UnitCube(), gl.TRIANGLES)
	if err != nil {
		return nil, fmt.Errorf("capture cube: %w", err)
	}
	quad, err := UploadMesh(assets.ScreenQuad(), gl.TRIANGLE_STRIP)
	if err != nil {
		cube.Destroy()
		return nil, fmt.Errorf("capture quad: %w", err)
	}
	return &Device{
		textures:   make(map[ibl.Handle]*glTexture),
		programs:   make(map[ibl.Handle]*captureProgram),
		targets:    make(map[ibl.Handle]*captureTarget),
		cube:       cube,
		quad:       quad,
		windowSize: windowSize,
		log:        log.With().Str("component", "gl-device").Logger(),
	}, nil
}

func (d *Device) handle() ibl.Handle {
	d.next++
	return d.next
}

// BuildProgram compiles a capture program with its defines injected ahead
// of each stage body.
func (d *Device) BuildProgram(src ibl.ProgramSource) (ibl.Handle, error) {
	vert := append(src.VertexDefines(), src.Vertex)
	frag := append(src.Defines(), src.Fragment)
	prog, err := CreateProgramSources(vert, frag)
	if err != nil {
		var se *ShaderError
		if errors.As(err, &se) {
			return 0, &ibl.ProgramError{Program: src.Kind, Stage: se.Stage, Log: se.Log}
		}
		return 0, &ibl.ProgramError{Program: src.Kind, Stage: "create", Log: err.Error()}
	}

	sampler := "environmentMap"
	if src.Kind == ibl.ProgramEquirect {
		sampler = "equirectangularMap"
	}
	h := d.handle()
	d.programs[h] = &captureProgram{prog: prog, kind: src.Kind, sampler: sampler}
	return h, nil
}

// CreateTexture allocates every face and level of a half-float texture.
func (d *Device) CreateTexture(desc ibl.TextureDesc) (ibl.Handle, error) {
	internal, format := int32(gl.RGB16F), uint32(gl.RGB)
	if desc.Format == ibl.FormatRG16F {
		internal, format = gl.RG16F, gl.RG
	}
	levels := max(desc.Levels, 1)

	t := &glTexture{desc: desc, target: gl.TEXTURE_2D}
	if desc.Kind == ibl.TextureCube {
		t.target = gl.TEXTURE_CUBE_MAP
	}

	drainErrors()
	gl.GenTextures(1, &t.id)
	gl.BindTexture(t.target, t.id)
	for level := 0; level < levels; level++ {
		size := int32(ibl.LevelSize(desc.Size, level))
		if t.target == gl.TEXTURE_CUBE_MAP {
			for _, face := range ibl.Faces {
				gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(face), int32(level), internal,
					size, size, 0, format, gl.FLOAT, nil)
			}
		} else {
			gl.TexImage2D(gl.TEXTURE_2D, int32(level), internal, size, size, 0, format, gl.FLOAT, nil)
		}
	}

	gl.TexParameteri(t.target, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(t.target, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	if t.target == gl.TEXTURE_CUBE_MAP {
		gl.TexParameteri(t.target, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	}
	if levels > 1 {
		gl.TexParameteri(t.target, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	} else {
		gl.TexParameteri(t.target, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	}
	gl.TexParameteri(t.target, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(t.target, gl.TEXTURE_MAX_LEVEL, int32(levels-1))
	gl.BindTexture(t.target, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &t.id)
		return 0, fmt.Errorf("%w: %s %dx%d %s: gl error 0x%X", ibl.ErrAllocation, desc.Label, desc.Size, desc.Size, desc.Format, code)
	}

	h := d.handle()
	d.textures[h] = t
	d.log.Debug().Str("label", desc.Label).Int("size", desc.Size).Int("levels", levels).Msg("texture allocated")
	return h, nil
}

// UploadPanorama stores the equirectangular image as an RGB16F texture.
func (d *Device) UploadPanorama(p *ibl.Panorama) (ibl.Handle, error) {
	if p == nil || len(p.Pix) == 0 {
		return 0, ibl.ErrPanorama
	}
	t := &glTexture{
		target: gl.TEXTURE_2D,
		desc:   ibl.TextureDesc{Label: "panorama", Kind: ibl.Texture2D, Size: p.Width, Levels: 1},
	}

	drainErrors()
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGB16F, int32(p.Width), int32(p.Height), 0, gl.RGB, gl.FLOAT, gl.Ptr(p.Pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &t.id)
		return 0, fmt.Errorf("%w: panorama %dx%d: gl error 0x%X", ibl.ErrAllocation, p.Width, p.Height, code)
	}
	h := d.handle()
	d.textures[h] = t
	return h, nil
}

// CreateCaptureTarget creates the framebuffer and depth renderbuffer shared
// by every pass. Storage is allocated by ResizeCapture.
func (d *Device) CreateCaptureTarget() (ibl.Handle, error) {
	t := &captureTarget{}
	gl.GenFramebuffers(1, &t.fbo)
	gl.GenRenderbuffers(1, &t.rbo)
	if t.fbo == 0 || t.rbo == 0 {
		return 0, fmt.Errorf("%w: capture framebuffer", ibl.ErrAllocation)
	}
	h := d.handle()
	d.targets[h] = t
	return h, nil
}

func (d *Device) target(h ibl.Handle) (*captureTarget, error) {
	t, ok := d.targets[h]
	if !ok {
		return nil, fmt.Errorf("%w: target %d", ErrUnknownHandle, h)
	}
	return t, nil
}

// ResizeCapture reallocates depth storage, binds the target and sets the
// viewport to size×size.
func (d *Device) ResizeCapture(h ibl.Handle, size int) error {
	t, err := d.target(h)
	if err != nil {
		return err
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.BindRenderbuffer(gl.RENDERBUFFER, t.rbo)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, int32(size), int32(size))
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, t.rbo)
	gl.Viewport(0, 0, int32(size), int32(size))
	t.size = size
	return nil
}

// Attach binds (texture, face, level) as colour attachment 0 and checks
// framebuffer completeness.
func (d *Device) Attach(h ibl.Handle, att ibl.Attachment) error {
	t, err := d.target(h)
	if err != nil {
		return err
	}
	tex, ok := d.textures[att.Texture]
	if !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownHandle, att.Texture)
	}
	if att.Level < 0 || att.Level >= max(tex.desc.Levels, 1) {
		return fmt.Errorf("level %d out of range for %q", att.Level, tex.desc.Label)
	}
	if size := ibl.LevelSize(tex.desc.Size, att.Level); size != t.size {
		return fmt.Errorf("%q level %d is %d, capture depth is %d", tex.desc.Label, att.Level, size, t.size)
	}

	texTarget := uint32(gl.TEXTURE_2D)
	if tex.target == gl.TEXTURE_CUBE_MAP {
		texTarget = gl.TEXTURE_CUBE_MAP_POSITIVE_X + uint32(att.Face)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, texTarget, tex.id, int32(att.Level))

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%w: status=0x%X", ErrIncompleteCapture, status)
	}
	return nil
}

// Clear clears colour and depth of the bound capture target.
func (d *Device) Clear(h ibl.Handle) error {
	t, err := d.target(h)
	if err != nil {
		return err
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	return nil
}

// Draw runs one capture program over the cube or the screen quad.
func (d *Device) Draw(h ibl.Handle, call ibl.DrawCall) error {
	t, err := d.target(h)
	if err != nil {
		return err
	}
	p, ok := d.programs[call.Program]
	if !ok {
		return fmt.Errorf("%w: program %d", ErrUnknownHandle, call.Program)
	}

	drainErrors()
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	p.prog.Use()
	p.prog.SetMat4("projection", call.Uniforms.Projection)
	p.prog.SetMat4("view", call.Uniforms.View)
	if p.kind == ibl.ProgramPrefilter {
		p.prog.SetFloat("roughness", call.Uniforms.Roughness)
		p.prog.SetFloat("sourceSize", float32(call.Uniforms.SourceSize))
	}

	if call.Source != 0 {
		src, ok := d.textures[call.Source]
		if !ok {
			return fmt.Errorf("%w: source %d", ErrUnknownHandle, call.Source)
		}
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(src.target, src.id)
		p.prog.SetInt(p.sampler, 0)
	}

	if call.Geometry.CullFront() {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	} else {
		gl.Disable(gl.CULL_FACE)
	}
	switch call.Geometry {
	case ibl.GeometryQuad:
		d.quad.Draw()
	default:
		d.cube.Draw()
	}

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s draw: gl error 0x%X", p.kind, code)
	}
	return nil
}

// RestoreDefaultTarget binds the window framebuffer and viewport.
func (d *Device) RestoreDefaultTarget() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	w, h := d.windowSize()
	gl.Viewport(0, 0, int32(w), int32(h))
}

// GenerateMipmaps rebuilds the texture's mip chain from level 0.
func (d *Device) GenerateMipmaps(h ibl.Handle) error {
	t, ok := d.textures[h]
	if !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownHandle, h)
	}
	gl.BindTexture(t.target, t.id)
	gl.GenerateMipmap(t.target)
	gl.BindTexture(t.target, 0)
	return nil
}

// PushCaptureState enables seamless cubemap filtering and saves the culling
// state that Draw changes per geometry. The returned func restores both.
func (d *Device) PushCaptureState() func() {
	seamless := gl.IsEnabled(gl.TEXTURE_CUBE_MAP_SEAMLESS)
	cull := gl.IsEnabled(gl.CULL_FACE)
	var mode int32
	gl.GetIntegerv(gl.CULL_FACE_MODE, &mode)

	gl.Enable(gl.TEXTURE_CUBE_MAP_SEAMLESS)

	return func() {
		setEnabled(gl.TEXTURE_CUBE_MAP_SEAMLESS, seamless)
		setEnabled(gl.CULL_FACE, cull)
		gl.CullFace(uint32(mode))
	}
}

// Release frees the GL object behind h. Unknown handles are ignored.
func (d *Device) Release(h ibl.Handle) {
	if t, ok := d.textures[h]; ok {
		gl.DeleteTextures(1, &t.id)
		delete(d.textures, h)
	}
	if p, ok := d.programs[h]; ok {
		p.prog.Delete()
		delete(d.programs, h)
	}
	if t, ok := d.targets[h]; ok {
		gl.DeleteFramebuffers(1, &t.fbo)
		gl.DeleteRenderbuffers(1, &t.rbo)
		delete(d.targets, h)
	}
}

// TextureID returns the GL name behind a texture handle.
func (d *Device) TextureID(h ibl.Handle) (uint32, bool) {
	t, ok := d.textures[h]
	if !ok {
		return 0, false
	}
	return t.id, true
}

// Destroy frees the capture geometry. Bake resources are freed by the baker.
func (d *Device) Destroy() {
	d.cube.Destroy()
	d.quad.Destroy()
}

func setEnabled(capability uint32, on bool) {
	if on {
		gl.Enable(capability)
	} else {
		gl.Disable(capability)
	}
}

func drainErrors() {
	for i := 0; i < 16 && gl.GetError() != gl.NO_ERROR; i++ {
	}
}

var _ ibl.Device = (*Device)(nil)
