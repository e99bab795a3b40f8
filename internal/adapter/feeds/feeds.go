// Package feeds implements hazard.SourceFetcher for each external provider.
//
// Every provider publishes a different wire shape: GeoJSON feature
// collections (earthquakes, flood alerts, volcanic activity), delimited text
// with fixed column order (wildfire hotspots), and XML storm elements
// (tropical cyclones). Each fetcher maps its shape into the common
// domain.HazardEvent schema. Unparsable individual records are skipped with
// a warn log; only a payload that cannot be decoded at all fails the fetch.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
)

// maxBodyBytes caps feed downloads; the largest real-world payload (the
// global FIRMS hotspot export) stays well under this.
const maxBodyBytes = 32 << 20

// fetchBody GETs a feed URL and returns the raw payload. Non-200 statuses
// and transport faults map onto the typed provider error taxonomy.
func fetchBody(ctx context.Context, client *http.Client, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "*/*")

	resp, err := client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &urlErr) && urlErr.Timeout()) {
			return nil, fmt.Errorf("%w: %v", domain.ErrProviderTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrProviderUnreachable, err)
	}
	return body, nil
}
