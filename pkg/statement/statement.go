// Package statement stores bank statement text and parses it into
// transactions.
//
// Statements are addressed by name inside an [Archive]. [NewDir] keeps them
// in a local directory, [NewS3] in an S3 bucket (or any S3-compatible object
// store such as MinIO or R2).
package statement

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"strings"
)

// ErrNotExist is returned (wrapped) when a statement is missing. It is
// os.ErrNotExist so callers may test with either.
var ErrNotExist = os.ErrNotExist

// Archive is a named store of statement files.
//
// Names are forward-slash separated and relative to the archive root.
// Implementations must be safe for concurrent use.
type Archive interface {
	// Open opens the named statement. The caller must close it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Put stores r under name, replacing any existing statement.
	Put(ctx context.Context, name string, r io.Reader) error

	// List returns the statement names in lexical order.
	List(ctx context.Context) ([]string, error)
}

var errBadName = errors.New("statement: invalid name")

// cleanName normalizes name and rejects paths escaping the archive root.
func cleanName(name string) (string, error) {
	n := path.Clean(strings.TrimPrefix(strings.ReplaceAll(name, "\\", "/"), "/"))
	if n == "." || n == ".." || strings.HasPrefix(n, "../") {
		return "", errBadName
	}
	return n, nil
}
