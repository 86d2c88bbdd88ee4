// Package members is the read-only contract to the external member
// directory. The treasury engine references members by id only and never
// writes to the roster.
package members

import (
	"context"

	"kas/internal/core"
)

// Directory lists the full member roster.
type Directory interface {
	List(ctx context.Context) ([]core.Member, error)
}
