package trace

import "errors"

// ErrMalformed is wrapped by any error raised while parsing a dictionary,
// basic-block, dynamic, or memory record that violates this package's
// format invariants (unexpected record type, register, mnemonic or memory
// operand count over its bound, out-of-range basic-block identifier, a
// memory stream that ends where an operation record is due). A record cut
// short partway through is reported with the underlying io error instead.
var ErrMalformed = errors.New("trace: malformed record")

// ErrThreadRange names a thread id outside [0, TotalThreads). Fetch and
// TotalInstructions do not return it: for such an id Fetch reports
// FetchError and TotalInstructions returns 0.
var ErrThreadRange = errors.New("trace: thread id out of range")
