package roster

import "errors"

var (
	ErrBadHeader    = errors.New("unrecognised header")
	ErrBadRow       = errors.New("bad row")
	ErrMissingSheet = errors.New("missing sheet")
)
