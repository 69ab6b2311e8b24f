// Package atmos advances the atmospheric fields of a terrasim domain.
//
// Each call to Engine.Advance runs three ordered phases:
//
//   - temperature from latitude, elevation lapse and season, smoothed by a
//     bounded diffusion pass and cached until its inputs change
//   - pressure from the barometric profile plus a thermal anomaly,
//     a seasonal swing, additive forcing and optional seeded noise
//   - wind from the sea-level pressure gradient, blending geostrophic
//     balance with a down-gradient estimate by local Rossby number
//
// The outer ring of the wind field is zero-gradient and a quadratic sponge
// damps the band inside it. Its width follows the domain size.
//
// Wind components are physical: U is eastward, V is northward. Row 0 of
// every grid is the northern edge.
//
// All outputs leave the engine as a Snapshot. The engine keeps writing its
// own buffers on the next Advance; a Snapshot never aliases them.
package atmos
