package helpers

import (
	"strings"

	"github.com/juju/errors"
)

// FoldErrors joins non-nil errors into one, nil if none.
// Single error is returned as is to keep its type.
func FoldErrors(errs []error) error {
	var last error
	ss := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			last = e
			ss = append(ss, e.Error())
		}
	}
	switch len(ss) {
	case 0:
		return nil
	case 1:
		return last
	}
	return errors.New(strings.Join(ss, "\n"))
}

// CloseAll closes every closer, in order, and folds errors.
func CloseAll(closers ...interface{ Close() error }) error {
	errs := make([]error, 0, len(closers))
	for _, c := range closers {
		if c != nil {
			errs = append(errs, c.Close())
		}
	}
	return FoldErrors(errs)
}
