package integrations

import (
	"context"
	"io"

	"github.com/kerbaras/pocketepub/pkg/errs"
	"github.com/kerbaras/pocketepub/pkg/utils"
)

// Fetcher downloads single resources to disk.
type Fetcher struct {
	api *utils.API
}

func NewFetcher(api *utils.API) *Fetcher {
	return &Fetcher{api: api}
}

// Fetch streams url into target, creating or replacing it. The body goes to a
// temporary file first, so target is either untouched or complete. Callers
// decide whether to skip existing targets.
func (f *Fetcher) Fetch(ctx context.Context, url, target string) error {
	body, err := f.api.Open(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	return writeAtomic(target, func(w io.Writer) error {
		if _, err := io.Copy(w, body); err != nil {
			return errs.Wrap(errs.ErrNetwork, "download "+url, err)
		}
		return nil
	})
}
