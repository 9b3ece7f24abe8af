// Copyright 2026 The Colony Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gocolony/colony"
)

// Client talks to a colonyd REST endpoint.
type Client struct {
	user   string // HTTP Basic-Auth
	pass   string
	base   string // URI to root of tree on server
	auth   bool
	client *http.Client
}

// NewClient returns a Client for the given base URI, such as
// "http://127.0.0.1:8322".  A nil http.Client selects a default with a
// modest timeout.
func NewClient(client *http.Client, base string) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{client: client, base: base}
}

func (c *Client) SetAuth(user string, pass string) {
	c.user = user
	c.pass = pass
	c.auth = true
}

func (c *Client) url(name string) string {
	if name == "" {
		return c.base + "/processes"
	}
	return c.base + "/processes/" + url.PathEscape(name)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, v interface{}) error {
	return c.doClient(c.client, ctx, method, url, body, v)
}

func (c *Client) doClient(client *http.Client, ctx context.Context, method, url string, body []byte, v interface{}) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, e := http.NewRequestWithContext(ctx, method, url, rd)
	if e != nil {
		return e
	}
	if body != nil {
		req.Header.Set("Content-Type", mimeJson)
	}
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}
	res, e := client.Do(req)
	if e != nil {
		return e
	}
	defer res.Body.Close()
	data, e := io.ReadAll(res.Body)
	if e != nil {
		return e
	}
	if res.StatusCode != http.StatusOK {
		re := &Error{}
		if json.Unmarshal(data, re) == nil && re.Message != "" {
			re.Code = res.StatusCode
			return re
		}
		return &Error{Code: res.StatusCode, Message: res.Status}
	}
	if v != nil {
		return json.Unmarshal(data, v)
	}
	return nil
}

// Processes returns the names of every supervised process.
func (c *Client) Processes(ctx context.Context) ([]string, error) {
	var names []string
	if e := c.do(ctx, "GET", c.url(""), nil, &names); e != nil {
		return nil, e
	}
	return names, nil
}

// GetProcess returns the status snapshot for one process.
func (c *Client) GetProcess(ctx context.Context, name string) (*colony.ProcessInfo, error) {
	info := &colony.ProcessInfo{}
	if e := c.do(ctx, "GET", c.url(name), nil, info); e != nil {
		return nil, e
	}
	return info, nil
}

// AddProcess adds (or replaces) a process.
func (c *Client) AddProcess(ctx context.Context, spec colony.ProcessSpec) error {
	body, e := json.Marshal(spec)
	if e != nil {
		return e
	}
	return c.do(ctx, "POST", c.url(""), body, nil)
}

// RemoveProcess removes a process.
func (c *Client) RemoveProcess(ctx context.Context, name string) error {
	return c.do(ctx, "DELETE", c.url(name), nil, nil)
}

// RestartProcess restarts a process with its current spec.
func (c *Client) RestartProcess(ctx context.Context, name string) error {
	return c.do(ctx, "POST", c.url(name)+"/restart", nil, nil)
}

// RestartAll restarts every running process.
func (c *Client) RestartAll(ctx context.Context) error {
	return c.do(ctx, "POST", c.base+"/restart", nil, nil)
}

// GetLog fetches retained log records newer than since.  With wait > 0
// the server long polls for up to that many seconds before answering.
func (c *Client) GetLog(ctx context.Context, since int64, wait int) ([]colony.LogRecord, int64, error) {
	u := c.base + "/log?since=" + strconv.FormatInt(since, 10)
	client := c.client
	if wait > 0 {
		u += "&wait=" + strconv.Itoa(wait)
		// The long poll must be allowed to outlive the client's
		// blanket timeout; bound it with a deadline covering the
		// server's wait instead.
		cl := *c.client
		cl.Timeout = 0
		client = &cl
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx,
			time.Duration(wait)*time.Second+5*time.Second)
		defer cancel()
	}
	chunk := &LogChunk{}
	if e := c.doClient(client, ctx, "GET", u, nil, chunk); e != nil {
		return nil, since, e
	}
	return chunk.Records, chunk.Id, nil
}
