package ibl

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Handle names a device resource (texture, program or capture target).
// Zero is never a valid handle; as a target it means the default framebuffer.
type Handle uint32

// TextureKind selects 2D or cubemap storage.
type TextureKind int

const (
	Texture2D TextureKind = iota
	TextureCube
)

// PixelFormat is the storage format of a bake product.
type PixelFormat int

const (
	FormatRGB16F PixelFormat = iota
	FormatRG16F
)

// Channels is the component count of the format.
func (f PixelFormat) Channels() int {
	if f == FormatRG16F {
		return 2
	}
	return 3
}

func (f PixelFormat) String() string {
	if f == FormatRG16F {
		return "RG16F"
	}
	return "RGB16F"
}

// TextureDesc describes storage to allocate. Textures are square.
type TextureDesc struct {
	Label  string
	Kind   TextureKind
	Size   int
	Levels int
	Format PixelFormat
}

// Geometry is the mesh a capture draw rasterises.
type Geometry int

const (
	// GeometryCube is the inside-out unit cube used by cube passes.
	GeometryCube Geometry = iota
	// GeometryQuad is the full-screen quad used by the BRDF pass.
	GeometryQuad
)

// CullFront reports whether g is drawn with front faces culled. The cube is
// seen from inside, so its visible faces are back faces. The quad faces the
// camera and is drawn with culling disabled.
func (g Geometry) CullFront() bool { return g == GeometryCube }

// Attachment is a colour attachment: a texture, a face and a mip level.
// Face is ignored for 2D textures.
type Attachment struct {
	Texture Handle
	Face    CubeFace
	Level   int
}

// Uniforms are the per-draw values a capture program reads.
type Uniforms struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Roughness  float32
	// SourceSize is the base face size of the sampled environment, used to
	// pick a source mip from the sample pdf.
	SourceSize int
}

// DrawCall is one capture draw into the currently attached texture.
type DrawCall struct {
	Program  Handle
	Geometry Geometry
	// Source is the sampled texture: the panorama for projection, the
	// environment cubemap for the convolutions, zero for the BRDF pass.
	Source   Handle
	Uniforms Uniforms
}

// Device is the rendering backend the capture passes drive. Every call
// names the resources it touches; implementations must not rely on state
// left behind by a previous call except the target's attachment and size.
type Device interface {
	BuildProgram(src ProgramSource) (Handle, error)
	CreateTexture(desc TextureDesc) (Handle, error)
	UploadPanorama(p *Panorama) (Handle, error)
	CreateCaptureTarget() (Handle, error)

	// ResizeCapture reallocates the target's depth storage to size×size,
	// binds it and sets the viewport.
	ResizeCapture(target Handle, size int) error
	// Attach retargets the colour attachment of target.
	Attach(target Handle, att Attachment) error
	Clear(target Handle) error
	Draw(target Handle, call DrawCall) error
	// RestoreDefaultTarget binds the default framebuffer and the window viewport.
	RestoreDefaultTarget()

	GenerateMipmaps(texture Handle) error
	// PushCaptureState enables seamless cube filtering and saves the face
	// culling state, which Draw sets per call from DrawCall.Geometry. The
	// returned func restores both.
	PushCaptureState() (restore func())

	Release(h Handle)
}
