package progression

import "errors"

var (
	ErrInvalidState        = errors.New("match is not in a resolvable state")
	ErrMissingFirstLeg     = errors.New("first leg of tie not found")
	ErrMissingPenaltyScore = errors.New("tie is level and no penalty score decides it")
	ErrMismatchedLegs      = errors.New("legs do not describe the same tie")
	ErrInvalidDetails      = errors.New("invalid match details")
)

// IsIntegrityError reports whether err points at corrupt bracket data rather
// than at a score entry the caller can correct.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrMissingFirstLeg) ||
		errors.Is(err, ErrMismatchedLegs) ||
		errors.Is(err, ErrInvalidDetails)
}
