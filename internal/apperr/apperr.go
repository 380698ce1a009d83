// Package apperr classifies errors into the four kinds the HTTP boundary
// knows how to surface: validation, auth, storage and not-found.
package apperr

import "github.com/samber/oops"

type Kind string

const (
	KindUnknown    Kind = ""
	KindValidation Kind = "VALIDATION_ERROR"
	KindAuth       Kind = "AUTH_ERROR"
	KindStorage    Kind = "STORAGE_ERROR"
	KindNotFound   Kind = "NOT_FOUND"
)

// Validation marks err as a rejected input. A nil err stays nil.
func Validation(err error) error {
	return oops.Code(string(KindValidation)).Wrap(err)
}

// Auth marks err as a credential or session failure.
func Auth(err error) error {
	return oops.Code(string(KindAuth)).Wrap(err)
}

// NotFound marks err as a reference to an absent record.
func NotFound(err error) error {
	return oops.Code(string(KindNotFound)).Wrap(err)
}

// Storage marks err as a persistence failure during op.
func Storage(err error, op string) error {
	if err == nil {
		return nil
	}
	return oops.Code(string(KindStorage)).With("op", op).Wrapf(err, "%s", op)
}

// KindOf reports the kind attached to err anywhere in its chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return KindUnknown
	}
	code, ok := oopsErr.Code().(string)
	if !ok {
		return KindUnknown
	}
	switch k := Kind(code); k {
	case KindValidation, KindAuth, KindStorage, KindNotFound:
		return k
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Context returns the key/value pairs attached to err, for logging.
func Context(err error) map[string]any {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Context()
	}
	return nil
}
