package pose

import "errors"

// Sentinel kinds for pose decoding.
var (
	ErrDecode = errors.New("decode pose sequence")
)
