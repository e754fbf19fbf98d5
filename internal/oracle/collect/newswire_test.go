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
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"sentibridge"
)

func newswireTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/articles" {
			http.NotFound(w, r)
			return
		}
		// Two pages; the second carries an article outside the window and
		// one without a requested symbol, both of which must be dropped.
		switch r.URL.Query().Get("cursor") {
		case "":
			fmt.Fprint(w, `{"articles":[
				{"id":"n1","title":"PEPE rallies","body":"strong gains","outlet":"wire-a","outlet_trust":0.8,"published_at":1700000100,"symbols":["PEPE"]},
				{"id":"n2","title":"WOJAK dumps","body":"heavy selling","outlet":"wire-b","published_at":1700000200,"symbols":["WOJAK"]}
			],"next_cursor":"p2"}`)
		case "p2":
			fmt.Fprint(w, `{"articles":[
				{"id":"n3","title":"old news","body":"stale","outlet":"wire-a","outlet_trust":0.8,"published_at":1600000000,"symbols":["PEPE"]},
				{"id":"n4","title":"other token","body":"irrelevant","outlet":"wire-a","outlet_trust":0.8,"published_at":1700000150,"symbols":["DOGE"]}
			],"next_cursor":""}`)
		default:
			http.Error(w, "bad cursor", http.StatusBadRequest)
		}
	}))
}

func TestNewswireCollectPaginatesAndFilters(t *testing.T) {
	srv := newswireTestServer(t)
	defer srv.Close()

	cred, _ := LoadCredential("")
	c := NewNewswire("wire", srv.URL, NewTokenBucket(100, time.Second), cred, 0)

	windowStart := time.Unix(1700000000, 0)
	windowEnd := time.Unix(1700000300, 0)
	items, cursor, err := c.Collect(context.Background(), windowStart, windowEnd, []string{"PEPE", "WOJAK"})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if cursor != "" {
		t.Errorf("cursor = %q, want empty after exhausting pages", cursor)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2: %+v", len(items), items)
	}
	if items[0].ID != "newswire:n1" || items[1].ID != "newswire:n2" {
		t.Fatalf("ids = %s, %s", items[0].ID, items[1].ID)
	}
	if items[0].AuthorWeight != 0.8 {
		t.Errorf("outlet_trust not applied, weight = %v", items[0].AuthorWeight)
	}
	if items[1].AuthorWeight != sentibridge.DefaultAuthorWeight {
		t.Errorf("missing outlet_trust should default, weight = %v", items[1].AuthorWeight)
	}
	if len(items[0].AssetTags) != 1 || items[0].AssetTags[0] != "PEPE" {
		t.Errorf("tags = %v, want [PEPE]", items[0].AssetTags)
	}
}

func TestNewswireTerminalOnClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	cred, _ := LoadCredential("")
	c := NewNewswire("wire", srv.URL, NewTokenBucket(100, time.Second), cred, 0)
	_, _, err := c.Collect(context.Background(), time.Unix(0, 0), time.Unix(1, 0), []string{"PEPE"})
	if err == nil || !IsTerminal(err) {
		t.Fatalf("4xx must be terminal, got %v", err)
	}
}

func TestNewswireRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"articles":[],"next_cursor":""}`)
	}))
	defer srv.Close()

	cred, _ := LoadCredential("")
	c := NewNewswire("wire", srv.URL, NewTokenBucket(100, time.Second), cred, 0)
	_, _, err := c.Collect(context.Background(), time.Unix(0, 0), time.Unix(1, 0), []string{"PEPE"})
	if err != nil {
		t.Fatalf("transient 503 should be retried to success, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("server saw %d calls, want 2", got)
	}
}

func TestNewswireSendsBearerToken(t *testing.T) {
	gotAuth := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"articles":[],"next_cursor":""}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("secret-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cred, err := LoadCredential(path)
	if err != nil {
		t.Fatalf("LoadCredential: %v", err)
	}
	c := NewNewswire("wire", srv.URL, NewTokenBucket(100, time.Second), cred, 0)
	if _, _, err := c.Collect(context.Background(), time.Unix(0, 0), time.Unix(1, 0), []string{"PEPE"}); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
}
