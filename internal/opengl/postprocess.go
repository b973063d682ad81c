package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

// ToneMap selects the HDR to display operator.
type ToneMap int32

const (
	// ToneReinhard is c/(c+1).
	ToneReinhard ToneMap = iota
	// ToneExposure is 1-exp(-c*exposure).
	ToneExposure
)

// PostProcess is an HDR off-screen target resolved to the default
// framebuffer with tone mapping, gamma 2.2 and optional bloom
// (bright-pass, separable Gaussian blur, additive composite).
type PostProcess struct {
	FBO      uint32
	ColorTex uint32 // RGBA16F
	DepthRBO uint32
	Width    int32
	Height   int32

	composite *Program
	bright    *Program
	blur      *Program
	quadVAO   uint32 // empty VAO for the fullscreen triangle

	Exposure float32
	ToneMap  ToneMap

	bloomFBO [2]uint32
	bloomTex [2]uint32
	bloomW   int32
	bloomH   int32

	BloomEnabled   bool
	BloomThreshold float32
	BloomStrength  float32
	BloomPasses    int
}

// ppVertSrc draws a fullscreen triangle from gl_VertexID.
const ppVertSrc = `
out vec2 fragUV;
void main() {
    const vec2 pos[3] = vec2[3](
        vec2(-1.0, -1.0),
        vec2( 3.0, -1.0),
        vec2(-1.0,  3.0)
    );
    gl_Position = vec4(pos[gl_VertexID], 0.0, 1.0);
    fragUV      = pos[gl_VertexID] * 0.5 + 0.5;
}
`

const ppFragSrc = `
in  vec2 fragUV;
out vec4 outColor;

uniform sampler2D hdrBuffer;
uniform sampler2D bloomTex;
uniform float     exposure;
uniform float     bloomStrength;
uniform bool      hasBloom;
uniform int       toneMap;

void main() {
    vec3 hdr = texture(hdrBuffer, fragUV).rgb;
    if (hasBloom) {
        hdr += texture(bloomTex, fragUV).rgb * bloomStrength;
    }

    vec3 mapped;
    if (toneMap == 0) {
        hdr *= exposure;
        mapped = hdr / (hdr + vec3(1.0));
    } else {
        mapped = vec3(1.0) - exp(-hdr * exposure);
    }
    outColor = vec4(pow(mapped, vec3(1.0 / 2.2)), 1.0);
}
`

const ppBrightFragSrc = `
in  vec2 fragUV;
out vec4 outColor;

uniform sampler2D hdrBuffer;
uniform float     threshold;

void main() {
    vec3  color = texture(hdrBuffer, fragUV).rgb;
    float luma  = dot(color, vec3(0.2126, 0.7152, 0.0722));
    outColor = vec4(color * step(threshold, luma), 1.0);
}
`

// ppBlurFragSrc is a single-axis 5-tap Gaussian; texelDir picks the axis.
const ppBlurFragSrc = `
in  vec2 fragUV;
out vec4 outColor;

uniform sampler2D blurTex;
uniform vec2      texelDir;

void main() {
    const float w[5] = float[](0.0625, 0.25, 0.375, 0.25, 0.0625);
    vec3 result = vec3(0.0);
    for (int i = -2; i <= 2; i++) {
        result += texture(blurTex, fragUV + float(i) * texelDir).rgb * w[i + 2];
    }
    outColor = vec4(result, 1.0);
}
`

// NewPostProcess creates the HDR target at width×height.
func NewPostProcess(width, height int) (*PostProcess, error) {
	composite, err := CreateProgram(ppVertSrc, ppFragSrc)
	if err != nil {
		return nil, fmt.Errorf("post-process shader: %w", err)
	}
	pp := &PostProcess{composite: composite, Exposure: 1, ToneMap: ToneReinhard}

	composite.Use()
	composite.SetInt("hdrBuffer", 0)
	composite.SetInt("bloomTex", 1)

	gl.GenVertexArrays(1, &pp.quadVAO)

	if err := pp.allocFBO(width, height); err != nil {
		pp.Destroy()
		return nil, err
	}
	return pp, nil
}

// EnableBloom compiles the bright-pass and blur shaders and creates the
// half-resolution ping-pong targets.
func (pp *PostProcess) EnableBloom() error {
	if pp.bright != nil {
		return nil
	}
	bright, err := CreateProgram(ppVertSrc, ppBrightFragSrc)
	if err != nil {
		return fmt.Errorf("bright-pass shader: %w", err)
	}
	blur, err := CreateProgram(ppVertSrc, ppBlurFragSrc)
	if err != nil {
		bright.Delete()
		return fmt.Errorf("blur shader: %w", err)
	}
	bright.Use()
	bright.SetInt("hdrBuffer", 0)
	blur.Use()
	blur.SetInt("blurTex", 0)
	pp.bright, pp.blur = bright, blur

	pp.allocBloomFBOs()
	pp.BloomEnabled = true
	pp.BloomThreshold = 1.0
	pp.BloomStrength = 0.6
	pp.BloomPasses = 4
	return nil
}

func (pp *PostProcess) allocBloomFBOs() {
	pp.bloomW = max(pp.Width/2, 1)
	pp.bloomH = max(pp.Height/2, 1)
	for i := range pp.bloomTex {
		pp.bloomTex[i] = newColorTexture(pp.bloomW, pp.bloomH)
		gl.GenFramebuffers(1, &pp.bloomFBO[i])
		gl.BindFramebuffer(gl.FRAMEBUFFER, pp.bloomFBO[i])
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, pp.bloomTex[i], 0)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

func (pp *PostProcess) freeBloomFBOs() {
	for i := range pp.bloomFBO {
		if pp.bloomFBO[i] != 0 {
			gl.DeleteFramebuffers(1, &pp.bloomFBO[i])
			pp.bloomFBO[i] = 0
		}
		if pp.bloomTex[i] != 0 {
			gl.DeleteTextures(1, &pp.bloomTex[i])
			pp.bloomTex[i] = 0
		}
	}
}

func newColorTexture(w, h int32) uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA16F, w, h, 0, gl.RGBA, gl.HALF_FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return id
}

func (pp *PostProcess) allocFBO(width, height int) error {
	pp.Width, pp.Height = int32(width), int32(height)
	pp.ColorTex = newColorTexture(pp.Width, pp.Height)

	gl.GenRenderbuffers(1, &pp.DepthRBO)
	gl.BindRenderbuffer(gl.RENDERBUFFER, pp.DepthRBO)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, pp.Width, pp.Height)

	gl.GenFramebuffers(1, &pp.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, pp.FBO)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, pp.ColorTex, 0)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, pp.DepthRBO)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("HDR FBO incomplete: status=0x%X", status)
	}
	return nil
}

func (pp *PostProcess) freeFBO() {
	if pp.FBO != 0 {
		gl.DeleteFramebuffers(1, &pp.FBO)
		pp.FBO = 0
	}
	if pp.ColorTex != 0 {
		gl.DeleteTextures(1, &pp.ColorTex)
		pp.ColorTex = 0
	}
	if pp.DepthRBO != 0 {
		gl.DeleteRenderbuffers(1, &pp.DepthRBO)
		pp.DepthRBO = 0
	}
}

// Resize recreates the HDR target, and the bloom targets when active.
func (pp *PostProcess) Resize(width, height int) error {
	if int32(width) == pp.Width && int32(height) == pp.Height {
		return nil
	}
	pp.freeFBO()
	if err := pp.allocFBO(width, height); err != nil {
		return err
	}
	if pp.BloomEnabled {
		pp.freeBloomFBOs()
		pp.allocBloomFBOs()
	}
	return nil
}

// Begin binds the HDR target for scene rendering.
func (pp *PostProcess) Begin() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, pp.FBO)
	gl.Viewport(0, 0, pp.Width, pp.Height)
}

// Blit resolves the HDR target into the default framebuffer.
func (pp *PostProcess) Blit() {
	gl.Disable(gl.DEPTH_TEST)
	gl.BindVertexArray(pp.quadVAO)

	bloom := pp.BloomEnabled && pp.bright != nil
	if bloom {
		gl.BindFramebuffer(gl.FRAMEBUFFER, pp.bloomFBO[0])
		gl.Viewport(0, 0, pp.bloomW, pp.bloomH)
		pp.bright.Use()
		pp.bright.SetFloat("threshold", pp.BloomThreshold)
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, pp.ColorTex)
		gl.DrawArrays(gl.TRIANGLES, 0, 3)

		// Each H+V pair ends back in bloomTex[0].
		src, dst := 0, 1
		pp.blur.Use()
		for i := 0; i < pp.BloomPasses*2; i++ {
			gl.BindFramebuffer(gl.FRAMEBUFFER, pp.bloomFBO[dst])
			if i%2 == 0 {
				gl.Uniform2f(pp.blur.Loc("texelDir"), 1.0/float32(pp.bloomW), 0)
			} else {
				gl.Uniform2f(pp.blur.Loc("texelDir"), 0, 1.0/float32(pp.bloomH))
			}
			gl.BindTexture(gl.TEXTURE_2D, pp.bloomTex[src])
			gl.DrawArrays(gl.TRIANGLES, 0, 3)
			src, dst = dst, src
		}
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, pp.Width, pp.Height)
	pp.composite.Use()
	pp.composite.SetFloat("exposure", pp.Exposure)
	pp.composite.SetInt("toneMap", int32(pp.ToneMap))
	pp.composite.SetBool("hasBloom", bloom)
	pp.composite.SetFloat("bloomStrength", pp.BloomStrength)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, pp.ColorTex)
	if bloom {
		gl.ActiveTexture(gl.TEXTURE1)
		gl.BindTexture(gl.TEXTURE_2D, pp.bloomTex[0])
	}
	gl.DrawArrays(gl.TRIANGLES, 0, 3)

	gl.BindVertexArray(0)
	gl.Enable(gl.DEPTH_TEST)
}

// Destroy frees all GPU resources owned by the post-process chain.
func (pp *PostProcess) Destroy() {
	pp.freeFBO()
	pp.freeBloomFBOs()
	for _, p := range []*Program{pp.composite, pp.bright, pp.blur} {
		if p != nil {
			p.Delete()
		}
	}
	if pp.quadVAO != 0 {
		gl.DeleteVertexArrays(1, &pp.quadVAO)
		pp.quadVAO = 0
	}
}
