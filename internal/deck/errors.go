package deck

import "errors"

var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidName             = errors.New("invalid name")
	ErrInvalidKind             = errors.New("invalid attribute type")
	ErrDuplicateAttribute      = errors.New("attribute already exists")
	ErrUnknownAttribute        = errors.New("unknown attribute")
	ErrDuplicateAttributeValue = errors.New("duplicate attribute value")
)
