package converter

import "errors"

var (
	// ErrEmptyOrOversizedKey rejects a conversion key that is empty or at
	// least as long as the key limit.
	ErrEmptyOrOversizedKey = errors.New("conversion key is empty or too long")
	ErrTooManySegments     = errors.New("too many segments")
	// ErrUnsupportedRequest rejects prediction and reverse conversion of
	// anything but a single free segment.
	ErrUnsupportedRequest = errors.New("request does not support constrained segments")
	ErrInvalidHistory     = errors.New("invalid history segments")

	ErrNoPath             = errors.New("no path through the lattice")
	ErrSegmentationFailed = errors.New("could not segment the best path")
)

// Kind groups conversion errors by who is at fault.
type Kind int

const (
	KindUnknown Kind = iota
	// KindRejected means the input was refused and Segments is untouched.
	KindRejected
	// KindInternal means the lattice could not be solved.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// Classify maps err, possibly wrapped, to its Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrEmptyOrOversizedKey),
		errors.Is(err, ErrTooManySegments),
		errors.Is(err, ErrUnsupportedRequest),
		errors.Is(err, ErrInvalidHistory):
		return KindRejected
	case errors.Is(err, ErrNoPath), errors.Is(err, ErrSegmentationFailed):
		return KindInternal
	}
	return KindUnknown
}
