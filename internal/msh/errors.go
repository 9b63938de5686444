package msh

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrVersion         = errors.New("not a valid mesh file")
	ErrTruncated       = errors.New("unexpected end of stream")
	ErrUncompressed    = errors.New("uncompressed meshes are not supported")
	ErrIndexRange      = errors.New("index out of range")
	ErrNameTooLong     = errors.New("name longer than 31 bytes")
	ErrNameCharset     = errors.New("name not representable in the name charset")
	ErrNotPolygon      = errors.New("face is not a triangle or quad")
	ErrUnknownMaterial = errors.New("unknown material")
	ErrUnknownImage    = errors.New("unknown image")
	ErrUnknownBone     = errors.New("unknown bone")
	ErrCountOverflow   = errors.New("count does not fit its field")
	ErrDuplicateName   = errors.New("duplicate name")
)

// FormatError reports a malformed stream. Offset is the read position when decoding stopped.
type FormatError struct {
	Section string
	Offset  int
	Err     error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("msh: %s at offset %d: %v", e.Section, e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }
func (e *FormatError) Cause() error  { return e.Err }

// ContractError reports a scene the encoder cannot represent.
type ContractError struct {
	Subject string
	Err     error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("msh: %s: %v", e.Subject, e.Err)
}

func (e *ContractError) Unwrap() error { return e.Err }
func (e *ContractError) Cause() error  { return e.Err }

func contractf(err error, format string, args ...interface{}) error {
	return &ContractError{Subject: fmt.Sprintf(format, args...), Err: err}
}
