// Package score defines the persisted musical-history data model and the
// determinism substrate it rests on.
//
// The model mirrors a git commit graph, specialized to musical data:
//
//   - Commit: immutable node in a project's history DAG. 0 parents (root),
//     1 parent (normal edit), or exactly 2 parents (merge).
//   - Phrase: one commit's contribution to a single (track, region) pair,
//     expressed as partial change streams rather than full state.
//   - HeadSnapshot: cumulative state at a commit, derived by folding every
//     phrase from root to target. Never persisted, never cached.
//
// # Determinism
//
// Every content-addressed identity in the system (checkout plan hashes,
// snapshot digests) is computed over RFC 8785 canonical JSON via
// MarshalCanonical and SHA-256 with domain separation via hash.go.
// Beat positions are continuous, so unlike strict RFC 8785 profiles that
// ban numbers outside int64, finite floats are permitted and serialized
// with shortest round-trip formatting. NaN and Inf are rejected.
//
// All ordering in the package is explicit: region ids sort lexically,
// notes sort by (start_beat, pitch, duration, velocity), controller events
// by (beat, value). Identical inputs always produce byte-identical
// canonical output.
package score
