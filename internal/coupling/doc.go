// Package coupling turns the published state of one subsystem into
// forcing for another.
//
// Every coupling reads snapshots only and returns a fresh EffectGrid:
//
//	Orographic   wind over terrain → rain multiplier (enhancement / rain shadow)
//	Thermal      temperature anomaly → additive pressure, read-only accessor
//	Maritime     land-sea contrast → additive pressure for the next tick
//	WindErosion  surface shear on dry land → additive elevation change
//	Evaporation  pressure and temperature → evaporation multiplier
//
// A cell of an EffectGrid can be claimed by at most one of the mutually
// exclusive tags. Mark refuses a conflicting claim and counts it, so the
// first physical effect to tag a cell wins.
package coupling
