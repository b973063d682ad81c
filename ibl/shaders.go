package ibl

import (
	"fmt"
)

// ProgramKind identifies one of the four capture programs.
type ProgramKind int

const (
	ProgramEquirect ProgramKind = iota
	ProgramIrradiance
	ProgramPrefilter
	ProgramBRDF

	programCount
)

var programNames = [programCount]string{"equirect", "irradiance", "prefilter", "brdf"}

func (k ProgramKind) String() string {
	if k < 0 || k >= programCount {
		return "unknown"
	}
	return programNames[k]
}

// ProgramSource is everything a device needs to build a capture program.
// GPU devices compile Vertex/Fragment with Defines() prepended to the
// fragment stage; CPU devices dispatch on Kind and read the typed fields.
type ProgramSource struct {
	Kind     ProgramKind
	Vertex   string
	Fragment string

	SampleCount int
	SampleDelta float32
}

// Vertex attribute locations read by the capture programs. The capture
// meshes feed position and uv at these slots (core.AttribPosition and
// core.AttribUV).
const (
	AttribPosition uint32 = 0
	AttribUV       uint32 = 2
)

// VertexDefines returns the attribute location macros for the vertex stage.
func (p ProgramSource) VertexDefines() []string {
	return []string{
		fmt.Sprintf("#define ATTRIB_POSITION %d\n", AttribPosition),
		fmt.Sprintf("#define ATTRIB_UV %d\n", AttribUV),
	}
}

// Defines returns the compile-time configuration lines for the fragment stage.
func (p ProgramSource) Defines() []string {
	switch p.Kind {
	case ProgramIrradiance:
		return []string{fmt.Sprintf("#define SAMPLE_DELTA %f\n", p.SampleDelta)}
	case ProgramPrefilter, ProgramBRDF:
		return []string{fmt.Sprintf("#define SAMPLE_COUNT %du\n", p.SampleCount)}
	}
	return nil
}

// ProgramSources returns the four capture programs configured from s.
func ProgramSources(s Settings) [programCount]ProgramSource {
	return [programCount]ProgramSource{
		ProgramEquirect:   {Kind: ProgramEquirect, Vertex: cubemapVertSrc, Fragment: equirectFragSrc},
		ProgramIrradiance: {Kind: ProgramIrradiance, Vertex: cubemapVertSrc, Fragment: irradianceFragSrc, SampleDelta: s.IrradianceSampleDelta},
		ProgramPrefilter:  {Kind: ProgramPrefilter, Vertex: cubemapVertSrc, Fragment: prefilterFragSrc, SampleCount: s.PrefilterSamples},
		ProgramBRDF:       {Kind: ProgramBRDF, Vertex: brdfVertSrc, Fragment: brdfFragSrc, SampleCount: s.BRDFSamples},
	}
}

// ── Shaders ───────────────────────────────────────────────────────────────────
//
// Sources carry no #version line; the device prepends it followed by the
// defines, so the SAMPLE_* and ATTRIB_* macros are visible to the body.

const cubemapVertSrc = `
layout(location = ATTRIB_POSITION) in vec3 inPosition;

uniform mat4 projection;
uniform mat4 view;

out vec3 localPos;

void main() {
    localPos = inPosition;
    gl_Position = projection * view * vec4(localPos, 1.0);
}
`

const equirectFragSrc = `
in vec3 localPos;
out vec4 outColor;

uniform sampler2D equirectangularMap;

const vec2 invAtan = vec2(0.1591, 0.3183);

vec2 sampleSphericalMap(vec3 v) {
    vec2 uv = vec2(atan(v.z, v.x), asin(clamp(v.y, -1.0, 1.0)));
    uv *= invAtan;
    uv += 0.5;
    return uv;
}

void main() {
    vec2 uv = sampleSphericalMap(normalize(localPos));
    outColor = vec4(texture(equirectangularMap, uv).rgb, 1.0);
}
`

const irradianceFragSrc = `
in vec3 localPos;
out vec4 outColor;

uniform samplerCube environmentMap;

const float PI = 3.14159265359;

void main() {
    vec3 N = normalize(localPos);

    // pole-safe tangent frame
    vec3 up = abs(N.y) > 0.999 ? vec3(0.0, 0.0, 1.0) : vec3(0.0, 1.0, 0.0);
    vec3 right = normalize(cross(up, N));
    up = cross(N, right);

    vec3 irradiance = vec3(0.0);
    float nrSamples = 0.0;
    for (float phi = 0.0; phi < 2.0 * PI; phi += SAMPLE_DELTA) {
        for (float theta = 0.0; theta < 0.5 * PI; theta += SAMPLE_DELTA) {
            vec3 tangentSample = vec3(sin(theta) * cos(phi), sin(theta) * sin(phi), cos(theta));
            vec3 sampleVec = tangentSample.x * right + tangentSample.y * up + tangentSample.z * N;

            irradiance += textureLod(environmentMap, sampleVec, 0.0).rgb * cos(theta) * sin(theta);
            nrSamples++;
        }
    }
    outColor = vec4(PI * irradiance / nrSamples, 1.0);
}
`

const ggxCommonSrc = `
const float PI = 3.14159265359;

float radicalInverseVdC(uint bits) {
    bits = (bits << 16u) | (bits >> 16u);
    bits = ((bits & 0x55555555u) << 1u) | ((bits & 0xAAAAAAAAu) >> 1u);
    bits = ((bits & 0x33333333u) << 2u) | ((bits & 0xCCCCCCCCu) >> 2u);
    bits = ((bits & 0x0F0F0F0Fu) << 4u) | ((bits & 0xF0F0F0F0u) >> 4u);
    bits = ((bits & 0x00FF00FFu) << 8u) | ((bits & 0xFF00FF00u) >> 8u);
    return float(bits) * 2.3283064365386963e-10;
}

vec2 hammersley(uint i, uint n) {
    return vec2(float(i) / float(n), radicalInverseVdC(i));
}

vec3 importanceSampleGGX(vec2 xi, vec3 N, float roughness) {
    float a = roughness * roughness;

    float phi = 2.0 * PI * xi.x;
    float cosTheta = sqrt((1.0 - xi.y) / (1.0 + (a * a - 1.0) * xi.y));
    float sinTheta = sqrt(max(0.0, 1.0 - cosTheta * cosTheta));

    vec3 H = vec3(cos(phi) * sinTheta, sin(phi) * sinTheta, cosTheta);

    vec3 up = abs(N.z) < 0.999 ? vec3(0.0, 0.0, 1.0) : vec3(1.0, 0.0, 0.0);
    vec3 tangent = normalize(cross(up, N));
    vec3 bitangent = cross(N, tangent);

    return normalize(tangent * H.x + bitangent * H.y + N * H.z);
}
`

const prefilterFragSrc = `
in vec3 localPos;
out vec4 outColor;

uniform samplerCube environmentMap;
uniform float roughness;
uniform float sourceSize;
` + ggxCommonSrc + `
float distributionGGX(float NdotH, float roughness) {
    float a = roughness * roughness;
    float a2 = a * a;
    float d = NdotH * NdotH * (a2 - 1.0) + 1.0;
    return a2 / (PI * d * d);
}

void main() {
    vec3 N = normalize(localPos);
    vec3 R = N;
    vec3 V = R;

    float texelSolidAngle = 4.0 * PI / (6.0 * sourceSize * sourceSize);

    vec3 color = vec3(0.0);
    float totalWeight = 0.0;
    for (uint i = 0u; i < SAMPLE_COUNT; ++i) {
        vec2 xi = hammersley(i, SAMPLE_COUNT);
        vec3 H = importanceSampleGGX(xi, N, roughness);
        vec3 L = normalize(2.0 * dot(V, H) * H - V);

        float NdotL = dot(N, L);
        if (NdotL > 0.0) {
            float lod = 0.0;
            if (roughness > 0.0) {
                float NdotH = max(dot(N, H), 0.0);
                float HdotV = max(dot(H, V), 0.0);
                float pdf = distributionGGX(NdotH, roughness) * NdotH / (4.0 * HdotV) + 0.0001;
                float sampleSolidAngle = 1.0 / (float(SAMPLE_COUNT) * pdf + 0.0001);
                lod = max(0.5 * log2(sampleSolidAngle / texelSolidAngle), 0.0);
            }
            color += textureLod(environmentMap, L, lod).rgb * NdotL;
            totalWeight += NdotL;
        }
    }

    if (totalWeight < 1e-4) {
        color = textureLod(environmentMap, N, 0.0).rgb;
    } else {
        color /= totalWeight;
    }
    outColor = vec4(color, 1.0);
}
`

const brdfVertSrc = `
layout(location = ATTRIB_POSITION) in vec3 inPosition;
layout(location = ATTRIB_UV) in vec2 inUV;

out vec2 fragUV;

void main() {
    fragUV = inUV;
    gl_Position = vec4(inPosition, 1.0);
}
`

const brdfFragSrc = `
in vec2 fragUV;
out vec2 outColor;
` + ggxCommonSrc + `
float geometrySchlickGGX(float NdotV, float roughness) {
    float k = (roughness * roughness) / 2.0;
    return NdotV / (NdotV * (1.0 - k) + k);
}

vec2 integrateBRDF(float NdotV, float roughness) {
    NdotV = max(NdotV, 1e-4);
    vec3 V = vec3(sqrt(max(0.0, 1.0 - NdotV * NdotV)), 0.0, NdotV);
    vec3 N = vec3(0.0, 0.0, 1.0);

    float A = 0.0;
    float B = 0.0;
    for (uint i = 0u; i < SAMPLE_COUNT; ++i) {
        vec2 xi = hammersley(i, SAMPLE_COUNT);
        vec3 H = importanceSampleGGX(xi, N, roughness);
        vec3 L = normalize(2.0 * dot(V, H) * H - V);

        float NdotL = max(L.z, 0.0);
        float NdotH = max(H.z, 0.0);
        float VdotH = max(dot(V, H), 0.0);
        if (NdotL > 0.0) {
            float G = geometrySchlickGGX(NdotV, roughness) * geometrySchlickGGX(NdotL, roughness);
            float G_Vis = (G * VdotH) / (NdotH * NdotV);
            float Fc = pow(1.0 - VdotH, 5.0);
            A += (1.0 - Fc) * G_Vis;
            B += Fc * G_Vis;
        }
    }
    return vec2(A, B) / float(SAMPLE_COUNT);
}

void main() {
    outColor = integrateBRDF(fragUV.x, fragUV.y);
}
`
