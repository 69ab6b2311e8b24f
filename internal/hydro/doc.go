// Package hydro advances shallow surface water over a terrain grid.
//
// A tick picks a steepest-descent flow direction per cell, limits the
// timestep by the CFL condition, adds rain and removes evaporation, then
// moves water with a bilinear gather. Water carried past the domain edge
// is booked as outflow in a cumulative ledger so every cubic metre is
// accounted for.
//
// When the caller marks the tick as the authoritative erosion pass the
// engine also exchanges material between the bed and the suspended
// sediment. It reports the change as an elevation delta and never writes
// the elevation grid it was given.
package hydro
