// Copyright The Notary Project Authors.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package truststore

import (
	"sync"
	"time"

	"github.com/iapkit/iap-core-go/iap"
)

// DefaultMaxAge is the default maximum age of a cached root certificate.
const DefaultMaxAge = 24 * time.Hour

// Cached is a root certificate provider that memoizes the bytes returned by
// another provider.
//
// The cache is built on top of sync.Map, so it suits fetching once and
// reading many times from concurrent verifications. Failures are not
// cached.
type Cached struct {
	provider iap.RootCertificateProvider
	store    sync.Map
	maxAge   time.Duration

	// now is replaced in tests.
	now func() time.Time
}

type cacheEntry struct {
	data      []byte
	fetchedAt time.Time
}

// NewCached wraps provider with a memo.
//
//   - maxAge is the maximum age of a cached certificate. Zero means
//     DefaultMaxAge, a negative value never expires entries.
func NewCached(provider iap.RootCertificateProvider, maxAge time.Duration) *Cached {
	if maxAge == 0 {
		maxAge = DefaultMaxAge
	}
	return &Cached{
		provider: provider,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// FetchRootCertificate returns the memoized bytes for identifier, fetching
// them from the wrapped provider when missing or expired.
func (c *Cached) FetchRootCertificate(identifier string) ([]byte, error) {
	if value, ok := c.store.Load(identifier); ok {
		entry := value.(*cacheEntry)
		if c.maxAge < 0 || c.now().Before(entry.fetchedAt.Add(c.maxAge)) {
			return entry.data, nil
		}
	}

	data, err := c.provider.FetchRootCertificate(identifier)
	if err != nil {
		return nil, err
	}
	c.store.Store(identifier, &cacheEntry{
		data:      data,
		fetchedAt: c.now(),
	})
	return data, nil
}

// Delete removes identifier from the cache.
func (c *Cached) Delete(identifier string) {
	c.store.Delete(identifier)
}

// Flush removes all cached certificates.
func (c *Cached) Flush() {
	c.store.Range(func(key, value interface{}) bool {
		c.store.Delete(key)
		return true
	})
}
