package sources

import (
	"context"

	"github.com/kerbaras/pocketepub/pkg/data"
)

// Resolver turns a chapter source URL into a descriptor. Every failure is
// tagged errs.ErrResolution, errs.ErrNetwork or errs.ErrHTTPStatus.
type Resolver interface {
	Resolve(ctx context.Context, source string) (*data.ChapterDescriptor, error)
}
