// Package viz renders simulation fields and diagnostics in the terminal.
//
// [Monitor] is a Bubble Tea program that steps a simulator and shows one
// field as a shaded heat map next to the quality report and trend plots:
//
//	Space - Pause/Resume
//	N     - Single step while paused
//	F/Tab - Cycle displayed field
//	+/-   - Double or halve the domain size
//	T     - Cycle palettes
//	Q     - Quit
//
// [Heatmap], [LandMask], [WindArrows] and [PlotSeries] are usable on their
// own, for example by the CLI plot command.
package viz
