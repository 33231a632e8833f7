// file: internal/metadata/fetch.go
// version: 1.1.0
// guid: c9af1070-1cc4-4628-9fb8-d61d19e460ce

package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/cache"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/logger"
	"github.com/tuttopassastudios/twc-vinyl-shelf/internal/metrics"
)

// maxResponseBytes bounds API response bodies.
const maxResponseBytes = 8 << 20

// fetcher performs cached JSON GETs for one provider.
type fetcher struct {
	source  string
	cache   cache.Store
	headers map[string]string
	log     *logger.Logger
}

// getJSON fetches rawURL and returns the body when it is valid JSON. Bodies
// are cached by URL, so only successful responses are ever stored.
func (f *fetcher) getJSON(ctx context.Context, client *http.Client, op, rawURL string) ([]byte, error) {
	key := f.source + ":" + rawURL
	if f.cache != nil {
		if body, ok := f.cache.Get(key); ok {
			metrics.IncCacheHit(f.source)
			f.log.Debugf("%s %s: cache hit", f.source, op)
			return body, nil
		}
		metrics.IncCacheMiss(f.source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to build request: %w", f.source, op, err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := client.Do(req)
	metrics.ObserveRequest(f.source, time.Since(start))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", f.source, op, ctxErr)
		}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, &AuthError{Source: f.source, Err: err}
		}
		return nil, &SearchUnavailableError{Source: f.source, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{Source: f.source, Err: fmt.Errorf("%s returned status %d", op, resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &SearchUnavailableError{Source: f.source, Op: op, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &SearchUnavailableError{Source: f.source, Op: op, Err: err}
	}
	if !json.Valid(body) {
		return nil, &SearchUnavailableError{Source: f.source, Op: op, Err: errMalformedResponse}
	}

	if f.cache != nil {
		f.cache.Set(key, body)
	}
	return body, nil
}
