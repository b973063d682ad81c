package ibl

// TextureUnit is the fixed sampler slot assignment shared by uniform setup
// and per-draw texture binding in the lighting shader.
type TextureUnit int32

const (
	UnitAlbedo TextureUnit = iota
	UnitNormal
	UnitMetallic
	UnitRoughness
	UnitAO
	UnitIrradiance
	UnitPrefilter
	UnitBRDFLUT

	unitCount
)

var unitSamplers = [unitCount]string{
	UnitAlbedo:     "albedoMap",
	UnitNormal:     "normalMap",
	UnitMetallic:   "metallicMap",
	UnitRoughness:  "roughnessMap",
	UnitAO:         "aoMap",
	UnitIrradiance: "irradianceMap",
	UnitPrefilter:  "prefilterMap",
	UnitBRDFLUT:    "brdfLUT",
}

// TextureUnits lists every unit in slot order.
func TextureUnits() []TextureUnit {
	units := make([]TextureUnit, unitCount)
	for i := range units {
		units[i] = TextureUnit(i)
	}
	return units
}

// Sampler is the GLSL sampler uniform bound to this unit.
func (u TextureUnit) Sampler() string {
	if u < 0 || u >= unitCount {
		return ""
	}
	return unitSamplers[u]
}

// IsMaterial reports whether the unit carries a per-material map rather than
// a baked lighting product.
func (u TextureUnit) IsMaterial() bool { return u < UnitIrradiance }

func (u TextureUnit) String() string { return u.Sampler() }
