package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	apperrors "github.com/assignpro/assignpro-web/internal/errors"
)

const (
	classUnknown  = "unknown"
	classCanceled = "canceled"
	classTimeout  = "timeout"
)

// Classify returns a short label for err suitable for metric and log tags.
//
// Application errors report their code and context errors report "canceled" or
// "timeout". Anything else is labelled by the innermost wrapped type, e.g.
// "json_syntaxerror".
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case goerrors.Is(err, context.Canceled):
		return classCanceled
	case goerrors.Is(err, context.DeadlineExceeded):
		return classTimeout
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	return typeLabel(innermost(err))
}

func innermost(err error) error {
	for next := goerrors.Unwrap(err); next != nil; next = goerrors.Unwrap(err) {
		err = next
	}
	return err
}

func typeLabel(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.String() == "" {
		return classUnknown
	}
	return strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
}
