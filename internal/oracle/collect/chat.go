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
	"strconv"
	"time"

	"sentibridge"
)

// ChatCollector reads a chat-platform message export API (Discord- or
// Telegram-shaped; the two differ only in endpoint and auth, so one
// implementation serves both). Chat authors carry a membership age used for
// the quality weight.
type ChatCollector struct {
	rest     *restClient
	maxItems int
}

// NewChat builds a chat collector. source must be SourceDiscord or
// SourceTelegram.
func NewChat(source sentibridge.Source, name, baseURL string, bucket *TokenBucket, cred *Credential, maxItems int) *ChatCollector {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &ChatCollector{
		rest:     newRESTClient(source, name, baseURL, bucket, cred),
		maxItems: maxItems,
	}
}

func (c *ChatCollector) Source() sentibridge.Source { return c.rest.source }
func (c *ChatCollector) Name() string               { return c.rest.name }

type chatMessage struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	SentAt  int64  `json:"sent_at"` // unix seconds
	Author  struct {
		ID       string `json:"id"`
		JoinedAt int64  `json:"joined_at"` // unix seconds, 0 when unknown
		Bot      bool   `json:"bot"`
	} `json:"author"`
}

type chatResponse struct {
	Messages   []chatMessage `json:"messages"`
	NextCursor string        `json:"next_cursor"`
}

// Collect pages through the message export for the window and tags messages
// by mentioned symbols.
func (c *ChatCollector) Collect(ctx context.Context, windowStart, windowEnd time.Time, assets []string) ([]sentibridge.Item, string, error) {
	var items []sentibridge.Item
	cursor := ""
	for {
		q := url.Values{}
		q.Set("after", strconv.FormatInt(windowStart.Unix(), 10))
		q.Set("before", strconv.FormatInt(windowEnd.Unix(), 10))
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		var resp chatResponse
		if err := c.rest.getJSON(ctx, "/v1/messages", q, &resp); err != nil {
			return nil, "", err
		}
		for _, m := range resp.Messages {
			ts := time.Unix(m.SentAt, 0).UTC()
			if !inWindow(ts, windowStart, windowEnd) {
				continue
			}
			tags := matchAssets(m.Content, assets)
			if len(tags) == 0 {
				continue
			}
			item := sentibridge.Item{
				ID:           qualifyID(c.rest.source, m.ID),
				Source:       c.rest.source,
				Text:         m.Content,
				AuthorID:     m.Author.ID,
				AuthorWeight: chatAuthorWeight(m, ts),
				CreatedAt:    ts,
				AssetTags:    tags,
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

// HealthCheck probes the export API gateway.
func (c *ChatCollector) HealthCheck(ctx context.Context) error {
	var out struct {
		OK bool `json:"ok"`
	}
	return c.rest.getJSON(ctx, "/v1/ping", nil, &out)
}

// chatAuthorWeight weights chat authors by membership age; declared bots are
// floored near zero so the bot-density manipulation signal sees them.
func chatAuthorWeight(m chatMessage, postedAt time.Time) float64 {
	if m.Author.Bot {
		return 0.05
	}
	if m.Author.JoinedAt == 0 {
		return sentibridge.DefaultAuthorWeight
	}
	age := postedAt.Sub(time.Unix(m.Author.JoinedAt, 0))
	w := sentibridge.DefaultAuthorWeight
	switch {
	case age < 7*24*time.Hour:
		w -= 0.35
	case age < 30*24*time.Hour:
		w -= 0.2
	case age > 365*24*time.Hour:
		w += 0.2
	}
	return sentibridge.Clamp01(w)
}
