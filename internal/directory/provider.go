package directory

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"presenceanalyzer/internal/cache"
	appLog "presenceanalyzer/internal/log"
)

// Provider serves lookups from the local XML file, re-reading it at most
// once per TTL. A missing or broken file yields no entries instead of an
// error; callers fall back to generic names.
type Provider struct {
	path  string
	cache *cache.Cache[*Directory]
}

// NewProvider creates a Provider for the XML file at path.
func NewProvider(path string, ttl time.Duration, now func() time.Time) *Provider {
	return &Provider{
		path:  path,
		cache: cache.NewWithClock[*Directory](ttl, now),
	}
}

// Path returns the XML file the provider reads.
func (p *Provider) Path() string {
	return p.path
}

// Lookup returns the directory entry for id, if known.
func (p *Provider) Lookup(ctx context.Context, id int) (User, bool) {
	return p.Load(ctx).Lookup(id)
}

// Invalidate forces the next Lookup to re-read the file.
func (p *Provider) Invalidate() {
	p.cache.Invalidate(p.path)
}

// Load returns the current directory, or nil when the file cannot be read.
// A nil *Directory is safe to query. A missing or malformed file is cached
// as nil like a good one, so it is re-read at most once per TTL.
func (p *Provider) Load(ctx context.Context) *Directory {
	d, err := p.cache.Get(ctx, p.path, func() (*Directory, error) {
		d, err := ParseFile(p.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			appLog.Debug("user directory not present", "path", p.path)
			return nil, nil
		case err != nil:
			appLog.Warn("user directory unreadable; using generic names", "path", p.path, "err", err)
			return nil, nil
		}
		return d, nil
	})
	if err != nil {
		appLog.Debug("user directory load aborted", "path", p.path, "err", err)
		return nil
	}
	return d
}
