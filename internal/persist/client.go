/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package persist is the HTTP bridge between an editor session and the
// pageboard server: layout load/save, uploads, file deletion and source
// text fetches.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pageboard/internal/domain"
	applog "pageboard/internal/log"
)

const maxTextBytes = 8 << 20

// Client talks to the server endpoints.
type Client struct {
	BaseURL string
	client  *http.Client
	log     *slog.Logger
}

// NewClient creates a client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     applog.WithComponent("persist"),
	}
}

func (c *Client) url(p string) string {
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return c.BaseURL + p
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: req.URL.String(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &domain.FetchError{URL: req.URL.String(), Status: resp.StatusCode, Err: errors.New(resp.Status)}
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &domain.FetchError{URL: req.URL.String(), Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Load returns the persisted items. A 404 means nothing was saved yet and
// is reported as *domain.NotFoundError.
func (c *Client) Load(ctx context.Context) ([]domain.SavedItem, error) {
	var env domain.Positions
	err := c.doJSON(ctx, http.MethodGet, "/load-positions", nil, &env)
	var fe *domain.FetchError
	if errors.As(err, &fe) && fe.Status == http.StatusNotFound {
		return nil, &domain.NotFoundError{What: "saved positions"}
	}
	if err != nil {
		return nil, err
	}
	c.log.Debug("positions loaded", slog.Int("count", len(env.Objects)))
	return env.Objects, nil
}

// Save replaces the persisted layout. Failures are *domain.PersistenceError.
func (c *Client) Save(ctx context.Context, items []domain.SavedItem) error {
	if items == nil {
		items = []domain.SavedItem{}
	}
	if err := c.doJSON(ctx, http.MethodPost, "/save-positions", domain.Positions{Objects: items}, nil); err != nil {
		return &domain.PersistenceError{Err: err}
	}
	return nil
}

// Upload stores a dropped file on the server and returns its public path.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (domain.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return domain.UploadResult{}, err
	}
	if _, err := fw.Write(data); err != nil {
		return domain.UploadResult{}, err
	}
	if err := mw.Close(); err != nil {
		return domain.UploadResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/user"), &buf)
	if err != nil {
		return domain.UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.do(req)
	if err != nil {
		return domain.UploadResult{}, err
	}
	defer resp.Body.Close()
	var res domain.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return domain.UploadResult{}, &domain.FetchError{URL: req.URL.String(), Err: fmt.Errorf("decode upload response: %w", err)}
	}
	if !res.Success || res.Path == "" {
		return res, &domain.FetchError{URL: req.URL.String(), Err: errors.New("upload rejected")}
	}
	c.log.Info("file uploaded", slog.String("path", res.Path))
	return res, nil
}

// DeleteFile removes an uploaded file. The server answers 403 for paths
// outside the upload directory and 404 for missing files; both surface as
// *domain.FetchError carrying the status.
func (c *Client) DeleteFile(ctx context.Context, filePath string) error {
	return c.doJSON(ctx, http.MethodPost, "/delete-file", map[string]string{"filepath": filePath}, nil)
}

// FetchText downloads the text behind a source path.
func (c *Client) FetchText(ctx context.Context, sourcePath string) (string, error) {
	u := c.url(sourcePath)
	if _, err := url.Parse(u); err != nil {
		return "", &domain.FetchError{URL: u, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", &domain.FetchError{URL: u, Err: err}
	}
	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxTextBytes))
	if err != nil {
		return "", &domain.FetchError{URL: u, Err: err}
	}
	return string(b), nil
}
