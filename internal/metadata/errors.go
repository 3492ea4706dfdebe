package metadata

import "errors"

// ErrUnknownSource is returned for an unsupported source kind.
var ErrUnknownSource = errors.New("unknown metadata source")
