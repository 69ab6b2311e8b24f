// Package scale derives every scale-dependent constant of the engine from
// the physical domain size and grid resolution.
//
// [Derive] is the single entry point. Its outputs are continuous functions
// of domain size: there are no per-scale branches, so nudging the domain
// across 100 km or 1000 km never produces a jump in any threshold.
//
// [ConfigurationError] is the only fatal error in the module; it is returned
// at construction, never mid-run.
package scale
