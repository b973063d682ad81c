package ibl

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Each pass takes every resource it touches as an argument and leaves the
// default framebuffer bound with the window viewport when it returns,
// successful or not.

// ProjectEquirect renders the panorama onto the six faces of env at
// size×size and, when envLevels > 1, generates the environment mip chain.
func ProjectEquirect(dev Device, target, program, panorama, env Handle, size, envLevels int) error {
	if panorama == 0 {
		return ErrPanorama
	}
	defer dev.RestoreDefaultTarget()

	call := DrawCall{Program: program, Geometry: GeometryCube, Source: panorama}
	if err := captureCube(dev, target, call, env, 0, size); err != nil {
		return err
	}
	if envLevels > 1 {
		if err := dev.GenerateMipmaps(env); err != nil {
			return fmt.Errorf("environment mipmaps: %w", err)
		}
	}
	return nil
}

// ConvolveIrradiance integrates env into the size×size irradiance cubemap.
func ConvolveIrradiance(dev Device, target, program, env, irradiance Handle, size int) error {
	defer dev.RestoreDefaultTarget()

	call := DrawCall{Program: program, Geometry: GeometryCube, Source: env}
	return captureCube(dev, target, call, irradiance, 0, size)
}

// PrefilterSpecular fills every level of prefilter. Level m is rendered at
// baseSize>>m with roughness m/(levels-1).
func PrefilterSpecular(dev Device, target, program, env, prefilter Handle, baseSize, levels, envSize int) error {
	defer dev.RestoreDefaultTarget()

	for level := 0; level < levels; level++ {
		roughness := float32(0)
		if levels > 1 {
			roughness = mgl32.Clamp(float32(level)/float32(levels-1), 0, 1)
		}
		call := DrawCall{
			Program:  program,
			Geometry: GeometryCube,
			Source:   env,
			Uniforms: Uniforms{Roughness: roughness, SourceSize: envSize},
		}
		if err := captureCube(dev, target, call, prefilter, level, LevelSize(baseSize, level)); err != nil {
			return fmt.Errorf("level %d: %w", level, err)
		}
	}
	return nil
}

// IntegrateBRDFLUT renders the split-sum lookup table into lut with a
// single full-screen quad.
func IntegrateBRDFLUT(dev Device, target, program, lut Handle, size int) error {
	defer dev.RestoreDefaultTarget()

	if err := dev.ResizeCapture(target, size); err != nil {
		return err
	}
	if err := dev.Attach(target, Attachment{Texture: lut}); err != nil {
		return err
	}
	if err := dev.Clear(target); err != nil {
		return err
	}
	call := DrawCall{
		Program:  program,
		Geometry: GeometryQuad,
		Uniforms: Uniforms{View: mgl32.Ident4(), Projection: mgl32.Ident4()},
	}
	return dev.Draw(target, call)
}

// captureCube resizes the capture target and draws the cube once per face
// into (dest, face, level) with the canonical views.
func captureCube(dev Device, target Handle, call DrawCall, dest Handle, level, size int) error {
	if err := dev.ResizeCapture(target, size); err != nil {
		return err
	}
	call.Uniforms.Projection = CaptureProjection()
	for _, face := range Faces {
		if err := dev.Attach(target, Attachment{Texture: dest, Face: face, Level: level}); err != nil {
			return fmt.Errorf("face %s: %w", face, err)
		}
		if err := dev.Clear(target); err != nil {
			return fmt.Errorf("face %s: %w", face, err)
		}
		call.Uniforms.View = CaptureView(face)
		if err := dev.Draw(target, call); err != nil {
			return fmt.Errorf("face %s: %w", face, err)
		}
	}
	return nil
}
