// Package ir provides the intermediate representation shared by the ruler
// front-end, compiler, store and harness.
//
// The package contains geometry descriptors (points, lines, circles and
// intersection roots), the constraint vocabulary, problems, and the
// instruction sequence emitted by the compiler. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Descriptors are immutable values; curve identity is the canonical Key,
//     which is insensitive to operand order
//   - All JSON encodings go through MarshalCanonical (RFC 8785) so that
//     problem hashes and program IDs are stable
//   - No float types anywhere: numeric evaluation belongs to the downstream
//     evaluator, never to the IR
package ir
