package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"pbr-engine/assets"
)

// Skybox draws a baked cubemap behind the scene. The vertex shader uses
// the xyww trick so every fragment lands on the far plane.
type Skybox struct {
	prog *Program
	cube *GPUMesh

	// Lod selects the mip sampled; useful for showing prefilter levels.
	Lod float32
}

const skyVertSrc = `
layout(location = 0) in vec3 inPosition;

uniform mat4 projection;
uniform mat4 view;

out vec3 localPos;

void main() {
    localPos = inPosition;
    mat4 rotView = mat4(mat3(view));
    vec4 clipPos = projection * rotView * vec4(localPos, 1.0);
    gl_Position = clipPos.xyww;
}
`

const skyFragSrc = `
in vec3 localPos;
out vec4 outColor;

uniform samplerCube environmentMap;
uniform float lod;

void main() {
    vec3 color = textureLod(environmentMap, localPos, lod).rgb;
    outColor = vec4(color, 1.0);
}
`

// NewSkybox compiles the background shader and uploads the cube.
func NewSkybox() (*Skybox, error) {
	prog, err := CreateProgram(skyVertSrc, skyFragSrc)
	if err != nil {
		return nil, fmt.Errorf("skybox shader: %w", err)
	}
	cube, err := UploadMesh(assets.UnitCube(), gl.TRIANGLES)
	if err != nil {
		prog.Delete()
		return nil, fmt.Errorf("skybox cube: %w", err)
	}
	return &Skybox{prog: prog, cube: cube}, nil
}

// Draw renders cubemap (a GL texture name) with the rotation part of view.
func (sb *Skybox) Draw(view, proj mgl32.Mat4, cubemap uint32, unit uint32) {
	if cubemap == 0 {
		return
	}
	// LEQUAL so depth=1.0 fragments pass against the cleared depth.
	gl.DepthFunc(gl.LEQUAL)
	cull := gl.IsEnabled(gl.CULL_FACE)
	gl.Disable(gl.CULL_FACE)

	sb.prog.Use()
	sb.prog.SetMat4("projection", proj)
	sb.prog.SetMat4("view", view)
	sb.prog.SetFloat("lod", sb.Lod)
	sb.prog.SetInt("environmentMap", int32(unit))
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_CUBE_MAP, cubemap)

	sb.cube.Draw()

	setEnabled(gl.CULL_FACE, cull)
	gl.DepthFunc(gl.LESS)
}

// Destroy frees all GPU resources owned by this skybox.
func (sb *Skybox) Destroy() {
	sb.cube.Destroy()
	sb.prog.Delete()
}
