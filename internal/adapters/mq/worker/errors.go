package worker

import "errors"

// ErrAbandoned is delivered for jobs whose requester stopped waiting before
// a worker picked them up.
var ErrAbandoned = errors.New("render job abandoned before start")
