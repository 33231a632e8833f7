// file: internal/catalog/errors.go
// version: 1.0.0
// guid: 0f6b1a6e-2c7d-4d55-9b1e-7a3c2e9d4f10

package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrCatalogParse is wrapped by every *ParseError.
	ErrCatalogParse = errors.New("catalog parse failed")
	// ErrCatalogLocked is returned when another run holds the catalog lock.
	ErrCatalogLocked = errors.New("catalog is locked by another run")
)

// ParseError reports an existing catalog that could not be decoded. The
// store never overwrites a file that produced one.
type ParseError struct {
	Path   string
	Offset int64
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	where := e.Path
	if where == "" {
		where = "catalog"
	}
	if e.Offset > 0 {
		where = fmt.Sprintf("%s (offset %d)", where, e.Offset)
	}
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %s: %v", ErrCatalogParse, where, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s: %s", ErrCatalogParse, where, e.Reason)
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCatalogParse}
	}
	return []error{ErrCatalogParse, e.Err}
}
