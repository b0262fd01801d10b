// Package pipeline executes one stage over a source tree: enumerate assets
// through the filesystem layer, probe the ones whose plan depends on their
// size, plan derivatives, then encode and write each derivative as an
// independent unit on a bounded worker pool.
//
// Derivative failures (read, codec, write, timeout) are recorded in the
// [StageResult] and never abort siblings. Only enumeration failures are
// fatal for a stage. The package also provides the removal stages (tree
// removal and glob deletion), the summary report and the analyze command.
package pipeline
