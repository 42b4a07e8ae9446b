package scene

import "avatarforge/internal/texture"

// Material is a PBR surface description in the metallic-roughness model.
type Material struct {
	Name      string
	BaseColor [4]float64
	Metallic  float64
	Roughness float64
	// Texture, when set, supplies the base color; BaseColor then acts as a
	// multiplier.
	Texture     *texture.Texture
	DoubleSided bool
}

// NewMaterial returns a material with principled defaults: white base color,
// dielectric, medium roughness.
func NewMaterial(name string) *Material {
	return &Material{
		Name:      name,
		BaseColor: [4]float64{1, 1, 1, 1},
		Metallic:  0,
		Roughness: 0.5,
	}
}
