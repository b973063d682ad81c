package main

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"pbr-engine/ibl"
)

// Synthetic sky radiance.
var (
	zenithColor  = mgl32.Vec3{0.15, 0.3, 0.8}
	horizonColor = mgl32.Vec3{0.9, 0.85, 0.75}
	groundColor  = mgl32.Vec3{0.2, 0.17, 0.13}
	sunColor     = mgl32.Vec3{60, 55, 45}
	sunDirection = mgl32.Vec3{0.4, 0.6, -0.7}.Normalize()
)

// sunCosRadius is cos of the sun's angular radius (about 2.5°).
const sunCosRadius = 0.999

// syntheticSky builds an equirectangular sky with a horizon gradient and a
// bright sun, for bakes without an HDR file.
func syntheticSky(width, height int) *ibl.Panorama {
	pano := ibl.SolidPanorama(width, height, mgl32.Vec3{})
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			uv := mgl32.Vec2{(float32(x) + 0.5) / float32(width), (float32(y) + 0.5) / float32(height)}
			pano.Set(x, y, skyRadiance(ibl.EquirectDirection(uv)))
		}
	}
	return pano
}

func skyRadiance(dir mgl32.Vec3) mgl32.Vec3 {
	if dir[1] < 0 {
		t := math32.Min(-dir[1]*4, 1)
		return lerp(horizonColor.Mul(0.5), groundColor, t)
	}
	c := lerp(horizonColor, zenithColor, math32.Pow(dir[1], 0.5))
	if dir.Dot(sunDirection) >= sunCosRadius {
		c = c.Add(sunColor)
	}
	return c
}

func lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}
