package solver

import "errors"

// Input errors. All of them are raised before any move is applied.
var (
	ErrNoClasses        = errors.New("no classes defined")
	ErrUnknownClass     = errors.New("unknown class")
	ErrInvalidCapacity  = errors.New("invalid class capacity")
	ErrDuplicateStudent = errors.New("duplicate student id")
	ErrInvalidScore     = errors.New("score out of range")
	ErrInvalidPool      = errors.New("option pool references unknown class")
	ErrInvalidParams    = errors.New("invalid parameters")
)

// IsInputError reports whether err comes from a rejected snapshot or parameter set.
func IsInputError(err error) bool {
	for _, target := range []error{
		ErrNoClasses, ErrUnknownClass, ErrInvalidCapacity, ErrDuplicateStudent,
		ErrInvalidScore, ErrInvalidPool, ErrInvalidParams,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
