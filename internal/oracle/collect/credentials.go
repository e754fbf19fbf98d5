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
	"fmt"
	"os"
	"strings"
	"sync"
)

// Credential holds one source's opaque bearer token. The token is re-read
// from its file on Reload (wired to SIGHUP in main), so operators can rotate
// credentials without restarting the worker.
type Credential struct {
	mu   sync.RWMutex
	path string
	tok  string
}

// LoadCredential reads the token from path. An empty path yields an empty
// credential, which collectors treat as "send no Authorization header".
func LoadCredential(path string) (*Credential, error) {
	c := &Credential{path: path}
	if path == "" {
		return c, nil
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the token file. On failure the previous token is kept.
func (c *Credential) Reload() error {
	if c.path == "" {
		return nil
	}
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read credential %s: %w", c.path, err)
	}
	tok := strings.TrimSpace(string(raw))
	if tok == "" {
		return fmt.Errorf("credential %s is empty", c.path)
	}
	c.mu.Lock()
	c.tok = tok
	c.mu.Unlock()
	return nil
}

// Token returns the current bearer token ("" when unconfigured).
func (c *Credential) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tok
}
