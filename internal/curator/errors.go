package curator

import "errors"

// ErrEmptyDigest means no eligible file survived the plan's filters. The
// condition is reported to the caller rather than failing the submission.
var ErrEmptyDigest = errors.New("no eligible files for digest")
