package ibl

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// The functions in this file are the CPU forms of the capture shaders in
// shaders.go. They are used by the software device and as test oracles.

// minWeight is the accumulated NdotL below which the prefilter falls back
// to a plain environment lookup.
const minWeight = 1e-4

// ProjectTexel returns the environment radiance for one cube texel.
func ProjectTexel(p *Panorama, dir mgl32.Vec3) mgl32.Vec3 {
	return p.Sample(dir)
}

// IrradianceTexel integrates cosine-weighted radiance over the hemisphere
// around n on a uniform (phi, theta) grid with the given step.
func IrradianceTexel(env *Cubemap, n mgl32.Vec3, delta float32) mgl32.Vec3 {
	n = n.Normalize()
	right, up := TangentFrame(n)

	var irradiance mgl32.Vec3
	var samples float32
	for phi := float32(0); phi < 2*math32.Pi; phi += delta {
		sinPhi, cosPhi := math32.Sincos(phi)
		for theta := float32(0); theta < 0.5*math32.Pi; theta += delta {
			sinTheta, cosTheta := math32.Sincos(theta)
			// tangent space → world
			t := mgl32.Vec3{sinTheta * cosPhi, sinTheta * sinPhi, cosTheta}
			dir := right.Mul(t[0]).Add(up.Mul(t[1])).Add(n.Mul(t[2]))

			irradiance = irradiance.Add(env.Sample(dir, 0).Mul(cosTheta * sinTheta))
			samples++
		}
	}
	return irradiance.Mul(math32.Pi / samples)
}

// PrefilterTexel convolves the environment with a GGX lobe of the given
// roughness around n, assuming n = v = r.
func PrefilterTexel(env *Cubemap, n mgl32.Vec3, roughness float32, sampleCount int) mgl32.Vec3 {
	n = n.Normalize()
	v := n

	texelSolidAngle := 4 * math32.Pi / (6 * float32(env.Size*env.Size))

	var color mgl32.Vec3
	var totalWeight float32
	for i := 0; i < sampleCount; i++ {
		xi := Hammersley(uint32(i), uint32(sampleCount))
		h := ImportanceSampleGGX(xi, n, roughness)
		l := h.Mul(2 * v.Dot(h)).Sub(v).Normalize()

		nDotL := n.Dot(l)
		if nDotL <= 0 {
			continue
		}

		var lod float32
		if roughness > 0 && env.Levels() > 1 {
			nDotH := math32.Max(n.Dot(h), 0)
			hDotV := math32.Max(h.Dot(v), 0)
			pdf := DistributionGGX(nDotH, roughness)*nDotH/(4*hDotV) + 0.0001
			sampleSolidAngle := 1 / (float32(sampleCount)*pdf + 0.0001)
			lod = math32.Max(0.5*math32.Log2(sampleSolidAngle/texelSolidAngle), 0)
		}

		color = color.Add(env.SampleLod(l, lod).Mul(nDotL))
		totalWeight += nDotL
	}
	if totalWeight < minWeight {
		return env.Sample(n, 0)
	}
	return color.Mul(1 / totalWeight)
}

// IntegrateBRDF evaluates the split-sum scale and bias for a view angle
// cosine and roughness.
func IntegrateBRDF(nDotV, roughness float32, sampleCount int) (scale, bias float32) {
	nDotV = math32.Max(nDotV, 1e-4)
	v := mgl32.Vec3{math32.Sqrt(math32.Max(0, 1-nDotV*nDotV)), 0, nDotV}
	n := mgl32.Vec3{0, 0, 1}

	for i := 0; i < sampleCount; i++ {
		xi := Hammersley(uint32(i), uint32(sampleCount))
		h := ImportanceSampleGGX(xi, n, roughness)
		l := h.Mul(2 * v.Dot(h)).Sub(v).Normalize()

		nDotL := math32.Max(l[2], 0)
		if nDotL <= 0 {
			continue
		}
		nDotH := math32.Max(h[2], 0)
		vDotH := math32.Max(v.Dot(h), 0)

		g := GeometrySmith(nDotV, nDotL, roughness)
		gVis := g * vDotH / (nDotH * nDotV)
		fc := math32.Pow(1-vDotH, 5)

		scale += (1 - fc) * gVis
		bias += fc * gVis
	}
	return scale / float32(sampleCount), bias / float32(sampleCount)
}
