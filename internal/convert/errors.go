package convert

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOption  = errors.New("invalid conversion option")
	ErrEncodingFailed = errors.New("encoding failed")
	ErrNoPages        = errors.New("no pages to convert")
)

// OptionError reports a single field of Options that failed validation. It
// matches ErrInvalidOption, and Err when set.
type OptionError struct {
	Field  string
	Reason string
	Err    error
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("option %s: %s", e.Field, e.Reason)
}

func (e *OptionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidOption, e.Err}
	}
	return []error{ErrInvalidOption}
}

// Stage names the step of the pipeline a page failed in.
type Stage string

const (
	StageGeometry Stage = "geometry"
	StageTone     Stage = "tone"
	StagePack     Stage = "pack"
	StageEncode   Stage = "encode"
)

// PageError is returned when a page fails; Page is the zero-based index of the
// page in the input.
type PageError struct {
	Page  int
	Stage Stage
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %s: %v", e.Page+1, e.Stage, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}
