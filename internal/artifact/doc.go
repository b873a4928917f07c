// Package artifact persists completed recordings to disk and applies
// the post-delivery retention rule.
//
// Recordings are written as WAV files named after their completion
// timestamp. Names never overwrite existing files; collisions within
// the same second get a numeric suffix. After a delivery attempt the
// retention policy deletes the file only when delivery succeeded, so
// every undelivered recording stays on disk for manual recovery.
//
// All filesystem access goes through afero, so tests run against an
// in-memory filesystem.
package artifact
