package usage

import "errors"

// ErrLimitReached indicates the session exceeded its run quota.
var ErrLimitReached = errors.New("limit reached")
