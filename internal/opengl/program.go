package opengl

import (
	"fmt"
	"os"
	"strings"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

// glslVersion is prepended to every stage.
const glslVersion = "#version 410 core\n"

// ShaderError is a compile or link failure with the driver's info log.
type ShaderError struct {
	Stage string // "vertex", "fragment" or "link"
	Log   string
}

func (e *ShaderError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Stage, strings.TrimRight(e.Log, "\x00\n "))
}

// Program is a linked GLSL program with a uniform location cache.
type Program struct {
	ID       uint32
	uniforms map[string]int32
}

// CreateProgram compiles and links a vertex/fragment pair. Sources must not
// carry a #version line.
func CreateProgram(vertSrc, fragSrc string) (*Program, error) {
	return CreateProgramSources([]string{vertSrc}, []string{fragSrc})
}

// CreateProgramSources concatenates each stage's parts after the version
// line, so callers can inject #define lines ahead of a shared body.
func CreateProgramSources(vertParts, fragParts []string) (*Program, error) {
	id, err := newProgram(joinSource(vertParts), joinSource(fragParts))
	if err != nil {
		return nil, err
	}
	return &Program{ID: id, uniforms: make(map[string]int32)}, nil
}

// CreateProgramFromFiles reads both stages from disk.
func CreateProgramFromFiles(vertPath, fragPath string) (*Program, error) {
	vs, err := os.ReadFile(vertPath)
	if err != nil {
		return nil, fmt.Errorf("read vertex shader: %w", err)
	}
	fs, err := os.ReadFile(fragPath)
	if err != nil {
		return nil, fmt.Errorf("read fragment shader: %w", err)
	}
	return CreateProgram(stripVersion(string(vs)), stripVersion(string(fs)))
}

// Use binds the program.
func (p *Program) Use() { gl.UseProgram(p.ID) }

// Loc returns the location of a uniform, -1 when it is not active.
func (p *Program) Loc(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.ID, gl.Str(name+"\x00"))
	p.uniforms[name] = loc
	return loc
}

func (p *Program) SetInt(name string, v int32)     { gl.Uniform1i(p.Loc(name), v) }
func (p *Program) SetFloat(name string, v float32) { gl.Uniform1f(p.Loc(name), v) }
func (p *Program) SetBool(name string, v bool) {
	var i int32
	if v {
		i = 1
	}
	gl.Uniform1i(p.Loc(name), i)
}
func (p *Program) SetVec3(name string, v [3]float32) { gl.Uniform3f(p.Loc(name), v[0], v[1], v[2]) }
func (p *Program) SetMat4(name string, m [16]float32) {
	gl.UniformMatrix4fv(p.Loc(name), 1, false, &m[0])
}

// Delete frees the GL program.
func (p *Program) Delete() {
	if p.ID != 0 {
		gl.DeleteProgram(p.ID)
		p.ID = 0
	}
}

func joinSource(parts []string) string {
	var b strings.Builder
	b.WriteString(glslVersion)
	for _, p := range parts {
		b.WriteString(p)
	}
	b.WriteByte(0)
	return b.String()
}

func stripVersion(src string) string {
	if strings.HasPrefix(strings.TrimSpace(src), "#version") {
		src = strings.TrimSpace(src)
		if i := strings.IndexByte(src, '\n'); i >= 0 {
			return src[i+1:]
		}
		return ""
	}
	return src
}

func newProgram(vertSrc, fragSrc string) (uint32, error) {
	vert, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	frag, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vert)
		return 0, err
	}

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vert)
	gl.AttachShader(prog, frag)
	gl.LinkProgram(prog)
	gl.DeleteShader(vert)
	gl.DeleteShader(frag)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, &ShaderError{Stage: "link", Log: log}
	}
	return prog, nil
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src)
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)

		stage := "vertex"
		if shaderType == gl.FRAGMENT_SHADER {
			stage = "fragment"
		}
		return 0, &ShaderError{Stage: stage, Log: log}
	}
	return shader, nil
}
