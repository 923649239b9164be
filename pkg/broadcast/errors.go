package broadcast

import "errors"

// ErrClosed indicates the broadcaster has been shut down
var ErrClosed = errors.New("broadcast.closed")
