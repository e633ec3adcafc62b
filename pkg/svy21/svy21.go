// Package svy21 converts between WGS84 latitude/longitude and the SVY21
// (EPSG:3414) planar grid used by Singapore's mapping services.
package svy21

import "math"

// EPSG:3414 parameters.
const (
	semiMajor      = 6378137.0
	flattening     = 1.0 / 298.257223563
	originLat      = 1.0 + 22.0/60.0
	originLon      = 103.0 + 50.0/60.0
	FalseNorthing  = 38744.572
	FalseEasting   = 28001.642
	scaleFactor    = 1.0
	semiMinor      = semiMajor * (1 - flattening)
	eccentricitySq = 2*flattening - flattening*flattening
)

var (
	e2 = eccentricitySq
	e4 = e2 * e2
	e6 = e4 * e2

	a0 = 1 - e2/4 - 3*e4/64 - 5*e6/256
	a2 = 3.0 / 8.0 * (e2 + e4/4 + 15*e6/128)
	a4 = 15.0 / 256.0 * (e4 + 3*e6/4)
	a6 = 35 * e6 / 3072

	originMeridian = meridianArc(originLat)
)

// ToSVY21 projects a WGS84 coordinate to SVY21 northing and easting in metres.
func ToSVY21(lat, lon float64) (northing, easting float64) {
	latR := radians(lat)

	sinLat := math.Sin(latR)
	sin2Lat := sinLat * sinLat
	cosLat := math.Cos(latR)
	cos2Lat := cosLat * cosLat
	cos3Lat := cos2Lat * cosLat
	cos4Lat := cos3Lat * cosLat
	cos5Lat := cos4Lat * cosLat
	cos6Lat := cos5Lat * cosLat
	cos7Lat := cos6Lat * cosLat

	rho := radiusRho(sin2Lat)
	v := radiusV(sin2Lat)
	psi := v / rho
	t := math.Tan(latR)
	w := radians(lon - originLon)

	m := meridianArc(lat)

	w2 := w * w
	w4 := w2 * w2
	w6 := w4 * w2
	w8 := w6 * w2

	psi2 := psi * psi
	psi3 := psi2 * psi
	psi4 := psi3 * psi

	t2 := t * t
	t4 := t2 * t2
	t6 := t4 * t2

	n1 := w2 / 2 * v * sinLat * cosLat
	n2 := w4 / 24 * v * sinLat * cos3Lat * (4*psi2 + psi - t2)
	n3 := w6 / 720 * v * sinLat * cos5Lat *
		((8*psi4)*(11-24*t2) - (28*psi3)*(1-6*t2) + psi2*(1-32*t2) - psi*2*t2 + t4)
	n4 := w8 / 40320 * v * sinLat * cos7Lat * (1385 - 3111*t2 + 543*t4 - t6)
	northing = FalseNorthing + scaleFactor*(m-originMeridian+n1+n2+n3+n4)

	e1 := w2 / 6 * cos2Lat * (psi - t2)
	e2t := w4 / 120 * cos4Lat * ((4*psi3)*(1-6*t2) + psi2*(1+8*t2) - psi*2*t2 + t4)
	e3 := w6 / 5040 * cos6Lat * (61 - 479*t2 + 179*t4 - t6)
	easting = FalseEasting + scaleFactor*v*w*cosLat*(1+e1+e2t+e3)

	return northing, easting
}

// ToLatLon converts an SVY21 northing and easting back to WGS84 degrees.
func ToLatLon(northing, easting float64) (lat, lon float64) {
	nPrime := northing - FalseNorthing
	mPrime := originMeridian + nPrime/scaleFactor

	n := (semiMajor - semiMinor) / (semiMajor + semiMinor)
	n2 := n * n
	n3 := n2 * n
	n4 := n2 * n2

	g := semiMajor * (1 - n) * (1 - n2) * (1 + 9*n2/4 + 225*n4/64) * (math.Pi / 180)
	sigma := (mPrime * math.Pi) / (180 * g)

	latPrime := sigma +
		(3*n/2-27*n3/32)*math.Sin(2*sigma) +
		(21*n2/16-55*n4/32)*math.Sin(4*sigma) +
		(151*n3/96)*math.Sin(6*sigma) +
		(1097*n4/512)*math.Sin(8*sigma)

	sinLatPrime := math.Sin(latPrime)
	sin2LatPrime := sinLatPrime * sinLatPrime

	rhoPrime := radiusRho(sin2LatPrime)
	vPrime := radiusV(sin2LatPrime)
	psiPrime := vPrime / rhoPrime
	psiPrime2 := psiPrime * psiPrime
	psiPrime3 := psiPrime2 * psiPrime
	psiPrime4 := psiPrime3 * psiPrime

	tPrime := math.Tan(latPrime)
	tPrime2 := tPrime * tPrime
	tPrime4 := tPrime2 * tPrime2
	tPrime6 := tPrime4 * tPrime2

	ePrime := easting - FalseEasting
	x := ePrime / (scaleFactor * vPrime)
	x2 := x * x
	x3 := x2 * x
	x5 := x3 * x2
	x7 := x5 * x2

	latFactor := tPrime / (scaleFactor * rhoPrime)
	lat1 := latFactor * (ePrime * x / 2)
	lat2 := latFactor * (ePrime * x3 / 24) *
		(-4*psiPrime2 + 9*psiPrime*(1-tPrime2) + 12*tPrime2)
	lat3 := latFactor * (ePrime * x5 / 720) *
		(8*psiPrime4*(11-24*tPrime2) - 12*psiPrime3*(21-71*tPrime2) +
			15*psiPrime2*(15-98*tPrime2+15*tPrime4) + 180*psiPrime*(5*tPrime2-3*tPrime4) + 360*tPrime4)
	lat4 := latFactor * (ePrime * x7 / 40320) *
		(1385 - 3633*tPrime2 + 4095*tPrime4 + 1575*tPrime6)
	latR := latPrime - lat1 + lat2 - lat3 + lat4

	secLat := 1 / math.Cos(latPrime)
	lon1 := x * secLat
	lon2 := x3 * secLat / 6 * (psiPrime + 2*tPrime2)
	lon3 := x5 * secLat / 120 *
		(-4*psiPrime3*(1-6*tPrime2) + psiPrime2*(9-68*tPrime2) + 72*psiPrime*tPrime2 + 24*tPrime4)
	lon4 := x7 * secLat / 5040 * (61 + 662*tPrime2 + 1320*tPrime4 + 720*tPrime6)
	lonR := radians(originLon) + lon1 - lon2 + lon3 - lon4

	return degrees(latR), degrees(lonR)
}

// Project maps longitude/latitude to SVY21 x (easting) and y (northing).
func Project(lon, lat float64) (x, y float64) {
	n, e := ToSVY21(lat, lon)
	return e, n
}

// Inverse maps SVY21 x (easting) and y (northing) to longitude/latitude.
func Inverse(x, y float64) (lon, lat float64) {
	lat, lon = ToLatLon(y, x)
	return lon, lat
}

func meridianArc(lat float64) float64 {
	latR := radians(lat)
	return semiMajor * (a0*latR - a2*math.Sin(2*latR) + a4*math.Sin(4*latR) - a6*math.Sin(6*latR))
}

func radiusRho(sin2Lat float64) float64 {
	return semiMajor * (1 - e2) / math.Pow(1-e2*sin2Lat, 1.5)
}

func radiusV(sin2Lat float64) float64 {
	return semiMajor / math.Sqrt(1-e2*sin2Lat)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
