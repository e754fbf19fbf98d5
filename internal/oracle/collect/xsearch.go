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

// XSearchCollector reads the X (Twitter-like) v2 recent-search API. Author
// weight is derived from account signals: verification, follower count, and
// account age.
type XSearchCollector struct {
	rest     *restClient
	maxItems int
}

// NewXSearch builds an X recent-search collector.
func NewXSearch(name, baseURL string, bucket *TokenBucket, cred *Credential, maxItems int) *XSearchCollector {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &XSearchCollector{
		rest:     newRESTClient(sentibridge.SourceX, name, baseURL, bucket, cred),
		maxItems: maxItems,
	}
}

func (c *XSearchCollector) Source() sentibridge.Source { return sentibridge.SourceX }
func (c *XSearchCollector) Name() string               { return c.rest.name }

type xPost struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	AuthorID  string `json:"author_id"`
	CreatedAt string `json:"created_at"` // RFC3339
}

type xUser struct {
	ID            string `json:"id"`
	Verified      bool   `json:"verified"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		FollowersCount int `json:"followers_count"`
	} `json:"public_metrics"`
}

type xSearchResponse struct {
	Data     []xPost `json:"data"`
	Includes struct {
		Users []xUser `json:"users"`
	} `json:"includes"`
	Meta struct {
		NextToken string `json:"next_token"`
	} `json:"meta"`
}

// Collect runs one recent-search query over the window. The query ORs the
// cashtags of every requested symbol; each returned post is tagged with the
// symbols it actually mentions.
func (c *XSearchCollector) Collect(ctx context.Context, windowStart, windowEnd time.Time, assets []string) ([]sentibridge.Item, string, error) {
	terms := make([]string, 0, len(assets))
	for _, sym := range assets {
		terms = append(terms, "$"+sym)
	}
	var items []sentibridge.Item
	nextToken := ""
	for {
		q := url.Values{}
		q.Set("query", strings.Join(terms, " OR "))
		q.Set("start_time", windowStart.UTC().Format(time.RFC3339))
		q.Set("end_time", windowEnd.UTC().Format(time.RFC3339))
		q.Set("tweet.fields", "created_at,author_id")
		q.Set("user.fields", "verified,created_at,public_metrics")
		q.Set("expansions", "author_id")
		q.Set("max_results", "100")
		if nextToken != "" {
			q.Set("next_token", nextToken)
		}
		var resp xSearchResponse
		if err := c.rest.getJSON(ctx, "/2/tweets/search/recent", q, &resp); err != nil {
			return nil, "", err
		}
		users := make(map[string]xUser, len(resp.Includes.Users))
		for _, u := range resp.Includes.Users {
			users[u.ID] = u
		}
		for _, p := range resp.Data {
			ts, err := time.Parse(time.RFC3339, p.CreatedAt)
			if err != nil || !inWindow(ts, windowStart, windowEnd) {
				continue
			}
			tags := matchAssets(p.Text, assets)
			if len(tags) == 0 {
				continue
			}
			item := sentibridge.Item{
				ID:           qualifyID(sentibridge.SourceX, p.ID),
				Source:       sentibridge.SourceX,
				Text:         p.Text,
				AuthorID:     p.AuthorID,
				AuthorWeight: xAuthorWeight(users[p.AuthorID], ts),
				CreatedAt:    ts.UTC(),
				AssetTags:    tags,
			}
			item.TruncateText()
			items = append(items, item)
		}
		nextToken = resp.Meta.NextToken
		if nextToken == "" || len(items) >= c.maxItems {
			break
		}
	}
	return sortAndCap(items, c.maxItems), nextToken, nil
}

// HealthCheck verifies the credential against the authenticated-user
// endpoint.
func (c *XSearchCollector) HealthCheck(ctx context.Context) error {
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	return c.rest.getJSON(ctx, "/2/users/me", nil, &out)
}

// xAuthorWeight maps account quality signals into [0,1]:
// verification and audience raise the weight, a young account lowers it.
// Accounts with no usable signals get the neutral default.
func xAuthorWeight(u xUser, postedAt time.Time) float64 {
	if u.ID == "" {
		return sentibridge.DefaultAuthorWeight
	}
	w := sentibridge.DefaultAuthorWeight
	if u.Verified {
		w += 0.2
	}
	switch f := u.PublicMetrics.FollowersCount; {
	case f > 10000:
		w += 0.2
	case f > 1000:
		w += 0.1
	case f < 50:
		w -= 0.3
	case f < 100:
		w -= 0.2
	}
	if created, err := time.Parse(time.RFC3339, u.CreatedAt); err == nil {
		if postedAt.Sub(created) < 30*24*time.Hour {
			w -= 0.2
		}
	}
	return sentibridge.Clamp01(w)
}
