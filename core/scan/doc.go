// Package scan discovers files under the monitored roots and hashes them.
//
// Both stages run on a workpool.Pool sized to the host's parallelism and end
// with a drain barrier:
//
//   - Discover walks every root (one task per root) and returns the sorted,
//     de-duplicated list of absolute file paths.
//   - Hash splits that list into fixed-size batches (one task per batch),
//     digests each file and records its size and modification time.
//
// Per-file problems such as permission denied, a file deleted between
// discovery and hashing, or a dangling symlink are recovered where they happen:
// the path is dropped, counted in Stats and logged at debug level. They never
// fail a stage.
package scan
