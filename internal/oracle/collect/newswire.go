// Copyright 2026 The sentibridge Authors. All Rights Reserved.
//
// Created: August 2026
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package collect

import (
	"context"
	"net/url"
	"strings"
	"time"

	"sentibridge"
)

// NewswireCollector reads a crypto news aggregation API. Articles carry an
// explicit symbol list and an outlet trust score, so author weighting is a
// direct mapping rather than a heuristic.
type NewswireCollector struct {
	rest     *restClient
	maxItems int
}

// NewNewswire builds a newswire collector for the given endpoint.
func NewNewswire(name, baseURL string, bucket *TokenBucket, cred *Credential, maxItems int) *NewswireCollector {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &NewswireCollector{
		rest:     newRESTClient(sentibridge.SourceNewswire, name, baseURL, bucket, cred),
		maxItems: maxItems,
	}
}

func (c *NewswireCollector) Source() sentibridge.Source { return sentibridge.SourceNewswire }
func (c *NewswireCollector) Name() string               { return c.rest.name }

type newswireArticle struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Body        string   `json:"body"`
	Outlet      string   `json:"outlet"`
	OutletTrust float64  `json:"outlet_trust"` // 0..1, 0 when the API omits it
	PublishedAt int64    `json:"published_at"` // unix seconds
	Symbols     []string `json:"symbols"`
}

type newswireResponse struct {
	Articles   []newswireArticle `json:"articles"`
	NextCursor string            `json:"next_cursor"`
}

// Collect fetches articles tagged with any of the requested symbols inside
// the window, following pagination until the window or the item cap is
// exhausted.
func (c *NewswireCollector) Collect(ctx context.Context, windowStart, windowEnd time.Time, assets []string) ([]sentibridge.Item, string, error) {
	var items []sentibridge.Item
	cursor := ""
	for {
		q := url.Values{}
		q.Set("symbols", strings.Join(assets, ","))
		q.Set("from", windowStart.UTC().Format(time.RFC3339))
		q.Set("to", windowEnd.UTC().Format(time.RFC3339))
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		var resp newswireResponse
		if err := c.rest.getJSON(ctx, "/v2/articles", q, &resp); err != nil {
			return nil, "", err
		}
		for _, a := range resp.Articles {
			ts := time.Unix(a.PublishedAt, 0).UTC()
			if !inWindow(ts, windowStart, windowEnd) {
				continue
			}
			tags := intersectSymbols(a.Symbols, assets)
			if len(tags) == 0 {
				continue
			}
			weight := a.OutletTrust
			if weight <= 0 || weight > 1 {
				weight = sentibridge.DefaultAuthorWeight
			}
			item := sentibridge.Item{
				ID:           qualifyID(sentibridge.SourceNewswire, a.ID),
				Source:       sentibridge.SourceNewswire,
				Text:         a.Title + "\n" + a.Body,
				AuthorID:     a.Outlet,
				AuthorWeight: weight,
				CreatedAt:    ts,
				AssetTags:    tags,
				Metadata:     map[string]string{"outlet": a.Outlet},
			}
			item.TruncateText()
			items = append(items, item)
		}
		cursor = resp.NextCursor
		if cursor == "" || len(items) >= c.maxItems {
			break
		}
	}
	return sortAndCap(items, c.maxItems), cursor, nil
}

// HealthCheck probes the API status endpoint.
func (c *NewswireCollector) HealthCheck(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	return c.rest.getJSON(ctx, "/v2/status", nil, &out)
}

// intersectSymbols keeps the article symbols that were actually requested,
// preserving the requested casing.
func intersectSymbols(have, requested []string) []string {
	var tags []string
	for _, want := range requested {
		for _, h := range have {
			if strings.EqualFold(h, want) {
				tags = append(tags, want)
				break
			}
		}
	}
	return tags
}
