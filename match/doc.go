// Package match ranks candidate users for a requester.
//
// A ranking runs over an immutable Snapshot of four collections (profiles,
// refined preferences, embedding vectors and behaviour logs) and combines:
//
//   - an orientation gate applied before any scoring,
//   - cosine similarity between the requester's preference vector and each
//     candidate's profile vector, scaled to be commensurate with
//   - structured attribute bonuses (city, hobby, height, weight, age) and a
//     one-off dislike penalty,
//   - collaborative credit gathered from the behaviour logs of the
//     requester's nearest-taste neighbours.
//
// The preference and behaviour scores are blended with a weight that shifts
// toward behaviour as the user base grows. ModePreferenceOnly skips the
// behaviour signal entirely.
package match
