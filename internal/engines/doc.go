// Package engines provides reference implementations of the stage executor
// interfaces.
//
// The executors model the behaviour of real synthesis, alignment and render
// backends without producing media bytes: durations follow the narration
// estimate, phonemes and keyframes are derived from the text, and artifact
// references point into the per-job artifact directory. Options.TimeScale
// controls how long each stage takes in wall time. The post-processor does
// touch disk: it writes a JSON manifest per job and a cache index entry.
package engines
