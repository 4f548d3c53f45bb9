package errors

import (
	goerrors "errors"
	"reflect"
	"strings"

	dberrors "github.com/hintsweep/scanpipe/internal/errors"
)

// Classify returns a normalized error type name suitable for tagging metrics/logs.
// A repository error classified by internal/errors reports its ErrorCode
// (e.g. "not_found") rather than its Go type, since that's the more useful
// tag for a job-lifecycle metric; anything else unwraps to its innermost
// concrete type and converts that to snake_case-ish.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	if code := dberrors.GetCode(err); code != "" {
		return string(code)
	}

	// Unwrap to the innermost error for better signal.
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
