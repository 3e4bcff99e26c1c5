package cli

import "errors"

// ErrPromptCancelled indicates that the user aborted an interactive prompt,
// for example with Ctrl-C while choosing an alternative.
var ErrPromptCancelled = errors.New("prompt cancelled")
