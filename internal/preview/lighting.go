package preview

import (
	"math"

	dvec3 "github.com/flywave/go3d/float64/vec3"
)

// lightConfig holds precomputed studio lighting: a key light, a rim light,
// hemisphere fill and Blinn-Phong specular, tone mapped with ACES.
type lightConfig struct {
	lightDir dvec3.T
	rimDir   dvec3.T
	halfMain dvec3.T // precomputed half-vector for Blinn-Phong
	ambient  float64
	hemi     float64
	direct   float64
	rim      float64
	specInt  float64
	specPow  float64
	exposure float64
	invGamma float64
}

func defaultLightConfig() lightConfig {
	lightDir := dvec3.T{180, 260, 140}
	lightDir.Normalize()
	rimDir := dvec3.T{-160, 130, -210}
	rimDir.Normalize()
	viewDir := dvec3.T{0, -110, -400}
	viewDir.Normalize()

	halfMain := dvec3.Sub(&lightDir, &viewDir)
	halfMain.Normalize()

	return lightConfig{
		lightDir: lightDir,
		rimDir:   rimDir,
		halfMain: halfMain,
		ambient:  0.55,
		hemi:     0.50,
		direct:   1.50,
		rim:      0.60,
		specInt:  0.45,
		specPow:  12.0,
		exposure: 1.05,
		invGamma: 1.0 / 2.2,
	}
}

// shade returns the combined lighting scalar for a face normal. Lambert terms
// take the absolute value so back faces light like front faces.
func (lc *lightConfig) shade(n dvec3.T) float64 {
	ndlMain := math.Abs(dvec3.Dot(&n, &lc.lightDir))
	ndlRim := math.Abs(dvec3.Dot(&n, &lc.rimDir))
	hemi := ((1.0-math.Abs(n[1]))*0.5 + 0.5) * lc.hemi

	ndh := dvec3.Dot(&n, &lc.halfMain)
	if ndh < 0 {
		ndh = 0
	}
	spec := math.Pow(ndh, lc.specPow) * lc.specInt

	return lc.ambient + hemi + ndlMain*lc.direct + ndlRim*lc.rim + spec
}

// Precomputed sRGB-to-linear lookup table.
var srgbToLinear [256]float64

func init() {
	for i := range srgbToLinear {
		srgbToLinear[i] = math.Pow(float64(i)/255.0, 2.2)
	}
}

// acesTonemap applies the ACES filmic curve to a linear value.
func acesTonemap(x float64) float64 {
	return (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
}

// shadePixel runs one channel through the output chain: sRGB decode, shade
// and exposure, ACES, gamma encode.
func shadePixel(c uint8, energy, invGamma float64) uint8 {
	return clamp255(math.Pow(acesTonemap(srgbToLinear[c]*energy), invGamma) * 255)
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
