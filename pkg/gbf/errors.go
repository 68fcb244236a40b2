package gbf

import "errors"

var (
	ErrInvalidMagic     = errors.New("invalid GBF magic")
	ErrUnsupportedMajor = errors.New("unsupported GBF major version")
	ErrCorruptFile      = errors.New("corrupt GBF file")
	ErrBadPayload       = errors.New("inconsistent GBF payload")
)
