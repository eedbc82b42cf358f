package nmmafit

import "math"

// Planck 2018 flat ΛCDM parameters.
const (
	hubbleConstant = 67.66   // km/s/Mpc
	omegaMatter    = 0.30966 // present-day matter density
	speedOfLight   = 299792.458
	simpsonSteps   = 2000 // must be even
)

// LuminosityDistance returns the luminosity distance in Mpc for redshift z in
// a flat ΛCDM universe. Radiation is neglected.
func LuminosityDistance(z float64) float64 {
	if z <= 0 || math.IsNaN(z) || math.IsInf(z, 0) {
		return 0
	}
	omegaLambda := 1 - omegaMatter
	invE := func(x float64) float64 {
		zp := 1 + x
		return 1 / math.Sqrt(omegaMatter*zp*zp*zp+omegaLambda)
	}

	h := z / simpsonSteps
	sum := invE(0) + invE(z)
	for i := 1; i < simpsonSteps; i++ {
		w := 2.0
		if i%2 == 1 {
			w = 4
		}
		sum += w * invE(float64(i)*h)
	}
	comoving := speedOfLight / hubbleConstant * (h / 3) * sum
	return (1 + z) * comoving
}

// DistanceModulus converts a luminosity distance in Mpc to the offset between
// apparent and absolute magnitude.
func DistanceModulus(distanceMpc float64) float64 {
	if distanceMpc <= 0 {
		return 0
	}
	return 5 * math.Log10(distanceMpc*1e6/10)
}
