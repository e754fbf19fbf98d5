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

package dedup

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Journal is the append-only (item_id, first_seen_ts) file. It is tolerant
// of truncation: a torn final line is skipped on load and the lost entries
// are simply re-observed on the next cycle.
type Journal struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
}

// OpenJournal opens (creating if needed) the journal at path for appending.
func OpenJournal(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dedup journal %s: %w", path, err)
	}
	return &Journal{f: f, w: bufio.NewWriterSize(f, 64*1024), path: path}, nil
}

// Append records one first-seen fact. Errors are swallowed deliberately:
// losing a journal line only means one possible duplicate after a restart.
func (j *Journal) Append(id string, firstSeen time.Time) {
	j.mu.Lock()
	fmt.Fprintf(j.w, "%s\t%d\n", id, firstSeen.Unix())
	j.mu.Unlock()
}

// Flush pushes buffered lines to disk. Called between cycles and on shutdown.
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.w.Flush(); err != nil {
		return err
	}
	return j.f.Sync()
}

// Close flushes and closes the file.
func (j *Journal) Close() error {
	if err := j.Flush(); err != nil {
		return err
	}
	return j.f.Close()
}

// LoadJournal replays the journal at path into the index. A missing file is
// not an error. Malformed lines (truncation) are skipped.
func LoadJournal(path string, idx *Index, now time.Time) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open dedup journal %s: %w", path, err)
	}
	defer f.Close()

	loaded := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		id, tsStr, ok := strings.Cut(sc.Text(), "\t")
		if !ok || id == "" {
			continue
		}
		ts, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}
		idx.Restore(id, time.Unix(ts, 0), now)
		loaded++
	}
	// Scanner errors past the last good line are truncation; ignore.
	return loaded, nil
}

// MarkerBackend shares first-sight markers between worker replicas. The
// local index always runs first; the backend only arbitrates items the local
// index has not seen.
type MarkerBackend interface {
	// FirstSight returns true when this process is the first to claim id
	// within ttl.
	FirstSight(id string, ttl time.Duration) bool
}

// RedisMarkers implements MarkerBackend on Redis using SET NX with a TTL,
// the same idempotency-marker pattern the submit journal uses for commits.
type RedisMarkers struct {
	c       *redis.Client
	timeout time.Duration
}

// NewRedisMarkers connects a marker backend to the Redis at addr.
func NewRedisMarkers(addr string) *RedisMarkers {
	return &RedisMarkers{
		c:       redis.NewClient(&redis.Options{Addr: addr}),
		timeout: 2 * time.Second,
	}
}

// FirstSight claims the marker key for id. On Redis errors it returns true:
// a flaky marker store must degrade to at-least-once processing, never to
// dropping fresh items.
func (r *RedisMarkers) FirstSight(id string, ttl time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	ok, err := r.c.SetNX(ctx, "seen:"+id, 1, ttl).Result()
	if err != nil {
		return true
	}
	return ok
}
