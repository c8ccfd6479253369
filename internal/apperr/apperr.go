package apperr

import "errors"

// Kind classifies errors that reach the HTTP boundary.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuth
	KindForbidden
	KindNotFound
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindState:
		return "state"
	default:
		return "internal"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	// Redirect is the nearest valid ancestor path for NotFound errors.
	Redirect string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error { return &Error{Kind: KindValidation, Msg: msg} }

func Conflict(msg string) error { return &Error{Kind: KindConflict, Msg: msg} }

func Auth(msg string) error { return &Error{Kind: KindAuth, Msg: msg} }

func Forbidden(msg string) error { return &Error{Kind: KindForbidden, Msg: msg} }

func State(msg string) error { return &Error{Kind: KindState, Msg: msg} }

func NotFound(msg, redirect string) error {
	return &Error{Kind: KindNotFound, Msg: msg, Redirect: redirect}
}

// Wrap attaches cause to a classified error without changing its message.
func Wrap(err error, cause error) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	cp := *e
	cp.Err = cause
	return &cp
}

// As returns the classified error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns KindInternal for nil and unclassified errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
