package research

import "errors"

// ErrResearchFailed marks a research attempt that exhausted its parse retry.
// The pipeline parks the submission in its failure state; a later retry
// starts a fresh attempt.
var ErrResearchFailed = errors.New("research: model output unusable after retry")
