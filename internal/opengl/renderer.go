package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"pbr-engine/core"
	"pbr-engine/ibl"
)

// MaxLights is the number of point lights the PBR shader evaluates.
const MaxLights = 8

// DefaultAttenuation is the inverse-square falloff.
var DefaultAttenuation = mgl32.Vec3{0, 0, 1}

// PointLight is a point light whose radiance falls off as
// 1 / (constant + linear*d + quadratic*d*d).
type PointLight struct {
	Position    mgl32.Vec3
	Color       mgl32.Vec3
	Attenuation mgl32.Vec3
}

// Falloff is the attenuation factor at distance d, matching the shader.
func (l PointLight) Falloff(d float32) float32 {
	a := l.Attenuation
	return 1 / max(a[0]+a[1]*d+a[2]*d*d, 1e-4)
}

// Material is a metallic-roughness surface. When Textured is set the five
// maps replace the scalar values; NormalMap is used only when HasNormal.
type Material struct {
	Albedo    mgl32.Vec3
	Metallic  float32
	Roughness float32
	AO        float32

	Textured  bool
	HasNormal bool

	AlbedoMap    uint32
	NormalMap    uint32
	MetallicMap  uint32
	RoughnessMap uint32
	AOMap        uint32
}

// IBLMaps are the GL names of the baked lighting inputs. A zero
// Irradiance disables the ambient term.
type IBLMaps struct {
	Irradiance      uint32
	Prefilter       uint32
	BRDFLUT         uint32
	PrefilterLevels int
}

// Renderer draws lit meshes with direct point lights plus split-sum IBL.
type Renderer struct {
	prog   *Program
	meshes map[*core.MeshData]*GPUMesh
	maps   IBLMaps
	log    zerolog.Logger

	viewportW int32
	viewportH int32
}

const pbrVertSrc = `
layout(location = 0) in vec3 inPosition;
layout(location = 1) in vec3 inNormal;
layout(location = 2) in vec2 inUV;
layout(location = 3) in vec3 inTangent;

uniform mat4 projection;
uniform mat4 view;
uniform mat4 model;
uniform mat3 normalMatrix;

out vec3 worldPos;
out vec3 normal;
out vec3 tangent;
out vec2 texCoords;

void main() {
    texCoords = inUV;
    worldPos = vec3(model * vec4(inPosition, 1.0));
    normal = normalMatrix * inNormal;
    tangent = normalMatrix * inTangent;
    gl_Position = projection * view * vec4(worldPos, 1.0);
}
`

const pbrFragSrc = `
in vec3 worldPos;
in vec3 normal;
in vec3 tangent;
in vec2 texCoords;
out vec4 outColor;

uniform vec3  albedo;
uniform float metallic;
uniform float roughness;
uniform float ao;
uniform bool  isTextured;
uniform bool  hasNormal;

uniform sampler2D albedoMap;
uniform sampler2D normalMap;
uniform sampler2D metallicMap;
uniform sampler2D roughnessMap;
uniform sampler2D aoMap;

uniform bool        useIBL;
uniform samplerCube irradianceMap;
uniform samplerCube prefilterMap;
uniform sampler2D   brdfLUT;
uniform float       maxReflectionLod;

uniform int  lightCount;
uniform vec3 lightPositions[MAX_LIGHTS];
uniform vec3 lightColors[MAX_LIGHTS];
uniform vec3 lightAttenuation[MAX_LIGHTS];
uniform vec3 camPos;

const float PI = 3.14159265359;

vec3 surfaceNormal() {
    vec3 N = normalize(normal);
    if (!isTextured || !hasNormal) {
        return N;
    }
    vec3 T = normalize(tangent - dot(tangent, N) * N);
    vec3 B = cross(N, T);
    vec3 tn = texture(normalMap, texCoords).xyz * 2.0 - 1.0;
    return normalize(mat3(T, B, N) * tn);
}

float distributionGGX(vec3 N, vec3 H, float r) {
    float a = r * r;
    float a2 = a * a;
    float NdotH = max(dot(N, H), 0.0);
    float d = NdotH * NdotH * (a2 - 1.0) + 1.0;
    return a2 / (PI * d * d);
}

float geometrySchlickGGX(float NdotV, float r) {
    float k = ((r + 1.0) * (r + 1.0)) / 8.0;
    return NdotV / (NdotV * (1.0 - k) + k);
}

float geometrySmith(vec3 N, vec3 V, vec3 L, float r) {
    return geometrySchlickGGX(max(dot(N, V), 0.0), r) *
           geometrySchlickGGX(max(dot(N, L), 0.0), r);
}

vec3 fresnelSchlick(float cosTheta, vec3 F0) {
    return F0 + (1.0 - F0) * pow(clamp(1.0 - cosTheta, 0.0, 1.0), 5.0);
}

vec3 fresnelSchlickRoughness(float cosTheta, vec3 F0, float r) {
    return F0 + (max(vec3(1.0 - r), F0) - F0) * pow(clamp(1.0 - cosTheta, 0.0, 1.0), 5.0);
}

void main() {
    vec3  a = albedo;
    float m = metallic;
    float r = roughness;
    float o = ao;
    if (isTextured) {
        a = pow(texture(albedoMap, texCoords).rgb, vec3(2.2));
        m = texture(metallicMap, texCoords).r;
        r = texture(roughnessMap, texCoords).r;
        o = texture(aoMap, texCoords).r;
    }

    vec3 N = surfaceNormal();
    vec3 V = normalize(camPos - worldPos);
    vec3 R = reflect(-V, N);
    vec3 F0 = mix(vec3(0.04), a, m);

    vec3 Lo = vec3(0.0);
    for (int i = 0; i < lightCount; ++i) {
        vec3 L = normalize(lightPositions[i] - worldPos);
        vec3 H = normalize(V + L);
        float dist = length(lightPositions[i] - worldPos);
        vec3 att = lightAttenuation[i];
        vec3 radiance = lightColors[i] / max(att.x + att.y * dist + att.z * dist * dist, 1e-4);

        float NDF = distributionGGX(N, H, r);
        float G = geometrySmith(N, V, L, r);
        vec3  F = fresnelSchlick(max(dot(H, V), 0.0), F0);

        vec3 specular = NDF * G * F / (4.0 * max(dot(N, V), 0.0) * max(dot(N, L), 0.0) + 0.0001);
        vec3 kD = (vec3(1.0) - F) * (1.0 - m);
        Lo += (kD * a / PI + specular) * radiance * max(dot(N, L), 0.0);
    }

    vec3 ambient = vec3(0.03) * a * o;
    if (useIBL) {
        vec3 F = fresnelSchlickRoughness(max(dot(N, V), 0.0), F0, r);
        vec3 kD = (1.0 - F) * (1.0 - m);
        vec3 diffuse = texture(irradianceMap, N).rgb * a;

        vec3 prefiltered = textureLod(prefilterMap, R, r * maxReflectionLod).rgb;
        vec2 brdf = texture(brdfLUT, vec2(max(dot(N, V), 0.0), r)).rg;
        vec3 specular = prefiltered * (F * brdf.x + brdf.y);

        ambient = (kD * diffuse + specular) * o;
    }

    outColor = vec4(ambient + Lo, 1.0);
}
`

// NewRenderer initialises OpenGL and compiles the PBR program.
// Must be called after the GLFW window context is made current.
func NewRenderer(log zerolog.Logger) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	log = log.With().Str("component", "renderer").Logger()
	log.Info().Str("version", gl.GoStr(gl.GetString(gl.VERSION))).Msg("OpenGL ready")

	defines := fmt.Sprintf("#define MAX_LIGHTS %d\n", MaxLights)
	prog, err := CreateProgramSources([]string{pbrVertSrc}, []string{defines, pbrFragSrc})
	if err != nil {
		return nil, fmt.Errorf("pbr shader: %w", err)
	}

	prog.Use()
	for _, u := range ibl.TextureUnits() {
		prog.SetInt(u.Sampler(), int32(u))
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)

	return &Renderer{
		prog:   prog,
		meshes: make(map[*core.MeshData]*GPUMesh),
		log:    log,
	}, nil
}

// SetViewport resizes the GL viewport.
func (r *Renderer) SetViewport(width, height int) {
	r.viewportW, r.viewportH = int32(width), int32(height)
	gl.Viewport(0, 0, r.viewportW, r.viewportH)
}

// SetIBL installs the baked maps used by subsequent frames.
func (r *Renderer) SetIBL(maps IBLMaps) { r.maps = maps }

// BeginFrame clears the bound framebuffer and uploads per-frame uniforms.
func (r *Renderer) BeginFrame(clear core.Color, view, proj mgl32.Mat4, camPos mgl32.Vec3, lights []PointLight) {
	gl.ClearColor(clear.R, clear.G, clear.B, clear.A)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	p := r.prog
	p.Use()
	p.SetMat4("projection", proj)
	p.SetMat4("view", view)
	p.SetVec3("camPos", camPos)

	n := min(len(lights), MaxLights)
	p.SetInt("lightCount", int32(n))
	for i := 0; i < n; i++ {
		p.SetVec3(fmt.Sprintf("lightPositions[%d]", i), lights[i].Position)
		p.SetVec3(fmt.Sprintf("lightColors[%d]", i), lights[i].Color)
		p.SetVec3(fmt.Sprintf("lightAttenuation[%d]", i), lights[i].Attenuation)
	}

	useIBL := r.maps.Irradiance != 0
	p.SetBool("useIBL", useIBL)
	if useIBL {
		p.SetFloat("maxReflectionLod", float32(max(r.maps.PrefilterLevels-1, 0)))
		bindUnit(ibl.UnitIrradiance, gl.TEXTURE_CUBE_MAP, r.maps.Irradiance)
		bindUnit(ibl.UnitPrefilter, gl.TEXTURE_CUBE_MAP, r.maps.Prefilter)
		bindUnit(ibl.UnitBRDFLUT, gl.TEXTURE_2D, r.maps.BRDFLUT)
	}
}

// DrawMesh draws mesh with the given model matrix and material. Meshes are
// uploaded on first use.
func (r *Renderer) DrawMesh(mesh *core.MeshData, model mgl32.Mat4, mat Material) {
	gpu, err := r.ensureUploaded(mesh)
	if err != nil {
		r.log.Error().Err(err).Str("mesh", mesh.Name).Msg("mesh upload failed")
		return
	}

	p := r.prog
	p.Use()
	p.SetMat4("model", model)
	normalMatrix := model.Mat3().Inv().Transpose()
	gl.UniformMatrix3fv(p.Loc("normalMatrix"), 1, false, &normalMatrix[0])

	p.SetVec3("albedo", mat.Albedo)
	p.SetFloat("metallic", mat.Metallic)
	p.SetFloat("roughness", mat.Roughness)
	p.SetFloat("ao", mat.AO)
	p.SetBool("isTextured", mat.Textured)
	p.SetBool("hasNormal", mat.HasNormal)
	if mat.Textured {
		bindUnit(ibl.UnitAlbedo, gl.TEXTURE_2D, mat.AlbedoMap)
		bindUnit(ibl.UnitNormal, gl.TEXTURE_2D, mat.NormalMap)
		bindUnit(ibl.UnitMetallic, gl.TEXTURE_2D, mat.MetallicMap)
		bindUnit(ibl.UnitRoughness, gl.TEXTURE_2D, mat.RoughnessMap)
		bindUnit(ibl.UnitAO, gl.TEXTURE_2D, mat.AOMap)
	}

	gpu.Draw()
}

// ReleaseMesh frees GPU buffers for the given mesh.
func (r *Renderer) ReleaseMesh(mesh *core.MeshData) {
	if gpu, ok := r.meshes[mesh]; ok {
		gpu.Destroy()
		delete(r.meshes, mesh)
	}
}

// Destroy releases all GPU resources.
func (r *Renderer) Destroy() {
	for mesh := range r.meshes {
		r.ReleaseMesh(mesh)
	}
	r.prog.Delete()
}

func (r *Renderer) ensureUploaded(mesh *core.MeshData) (*GPUMesh, error) {
	if gpu, ok := r.meshes[mesh]; ok {
		return gpu, nil
	}
	gpu, err := UploadMesh(mesh, gl.TRIANGLES)
	if err != nil {
		return nil, err
	}
	r.meshes[mesh] = gpu
	return gpu, nil
}

// bindUnit binds id to the texture unit reserved for u.
func bindUnit(u ibl.TextureUnit, target, id uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(u))
	gl.BindTexture(target, id)
}
