package msh

import (
	"strings"

	"github.com/chewxy/math32"
)

// Mesh-type tags. They select the neck point table and name the file prefixes.
const (
	TypeSet           = "Set"
	TypeFacility      = "Facility"
	TypeCar           = "Car"
	TypeProp          = "Prop"
	TypeFemaleCostume = "FemaleCostume"
	TypeMaleCostume   = "MaleCostume"
	TypeAccessory     = "Accessory"
	TypeHair          = "Hair"
	TypeHat           = "Hat"
	TypeLatex         = "Latex"
	TypeBlueprint     = "Blueprint"
	TypeBackdrop      = "Backdrop"
)

// Longer prefixes come first so "p_car_" wins over "p_".
var typePrefixes = []struct {
	prefix string
	typ    string
}{
	{"lp_car_", TypeCar},
	{"p_car_", TypeCar},
	{"cos_f_", TypeFemaleCostume},
	{"cos_m_", TypeMaleCostume},
	{"latex_", TypeLatex},
	{"hair_", TypeHair},
	{"set_", TypeSet},
	{"sld_", TypeSet},
	{"fac_", TypeFacility},
	{"fld_", TypeFacility},
	{"acc_", TypeAccessory},
	{"hat_", TypeHat},
	{"blp_", TypeBlueprint},
	{"lp_", TypeProp},
	{"bd_", TypeBackdrop},
	{"p_", TypeProp},
}

// TypeFromName derives the mesh-type tag from a file base name. It returns "" when no prefix matches.
func TypeFromName(name string) string {
	name = strings.ToLower(name)
	for _, p := range typePrefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.typ
		}
	}
	return ""
}

// NeckTable is the fixed set of neck connection points of a body type.
type NeckTable [10][3]float32

var MaleNeck = NeckTable{
	{0.070073, 0.000000, 1.543278},
	{0.048910, 0.055956, 1.564988},
	{0.029399, 0.074874, 1.583479},
	{-0.013411, 0.075498, 1.607305},
	{-0.043935, 0.043576, 1.611162},
	{-0.048926, 0.000001, 1.607596},
	{-0.043935, -0.043576, 1.611162},
	{-0.013411, -0.075498, 1.607305},
	{0.029399, -0.074873, 1.583479},
	{0.048910, -0.055956, 1.564988},
}

var FemaleNeck = NeckTable{
	{0.074359, 0.000005, 1.549346},
	{0.049324, 0.049710, 1.573448},
	{0.028644, 0.064228, 1.590175},
	{-0.016194, 0.055339, 1.601248},
	{-0.038122, 0.034884, 1.601856},
	{-0.048233, -0.000011, 1.601135},
	{-0.038122, -0.034884, 1.601855},
	{-0.016193, -0.055339, 1.601248},
	{0.028644, -0.064228, 1.590175},
	{0.049324, -0.049706, 1.573445},
}

// NeckTableFor selects the table for a mesh type. Unknown types fall back to the male table with ok=false.
func NeckTableFor(meshType string) (t *NeckTable, ok bool) {
	switch meshType {
	case TypeFemaleCostume:
		return &FemaleNeck, true
	case TypeMaleCostume:
		return &MaleNeck, true
	}
	return &MaleNeck, false
}

// Nearest returns the index of the table point closest to p. Ties keep the lower index.
func (t *NeckTable) Nearest(p [3]float32) int {
	best, bestDist := 0, math32.Inf(1)
	for i, q := range t {
		dx, dy, dz := p[0]-q[0], p[1]-q[1], p[2]-q[2]
		d := math32.Sqrt(dx*dx + dy*dy + dz*dz)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
