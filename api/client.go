// Package api implements the authenticated request pipeline against the
// HealthSync backend: one generic execution path covering both wire
// encodings, typed decoding, and the closed error taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/healthsyncai/healthsync-go/core"
	"github.com/healthsyncai/healthsync-go/internal/httpclient"
	"github.com/healthsyncai/healthsync-go/vault"
)

// Encoding selects the request body encoding. The login endpoint only
// accepts multipart form fields; every other endpoint speaks JSON.
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingMultipart
)

// RequestSpec describes one pipeline execution. Body is JSON-encoded under
// EncodingJSON; Fields are written as form parts under EncodingMultipart.
type RequestSpec struct {
	Path         string
	Method       string
	Body         any
	Fields       map[string]string
	RequiresAuth bool
	Encoding     Encoding
}

// Client executes requests against a fixed base endpoint. It injects
// bearer auth from the vault and clears the vault on any 401 so every call
// site is protected uniformly.
type Client struct {
	base  *url.URL
	http  *http.Client
	vault vault.Vault
	log   *zap.Logger
}

// New constructs a Client. The base endpoint is validated up front;
// a URL without scheme or host fails with invalid_endpoint.
func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	base, err := url.Parse(o.baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, core.NewError(core.ErrInvalidEndpoint,
			fmt.Sprintf("api: invalid base endpoint %q", o.baseURL), core.WithWrapped(err))
	}
	if o.vault == nil {
		o.vault = vault.NewMemory()
	}
	if o.httpClient == nil {
		o.httpClient = httpclient.New(httpclient.WithTimeout(o.timeout))
	}
	return &Client{base: base, http: o.httpClient, vault: o.vault, log: o.logger}, nil
}

// Vault exposes the credential store the client was built with.
func (c *Client) Vault() vault.Vault { return c.vault }

// Do executes spec and decodes the 2xx response body into T.
func Do[T any](ctx context.Context, c *Client, spec RequestSpec) (T, error) {
	var zero T

	u, err := c.resolve(spec.Path)
	if err != nil {
		// Programmer/configuration error: full detail in the log, never
		// shown verbatim.
		c.log.Error("invalid endpoint", zap.String("path", spec.Path), zap.Error(err))
		return zero, err
	}

	body, contentType, err := encodeBody(spec)
	if err != nil {
		return zero, err
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, u.String(), body)
	if err != nil {
		return zero, core.WrapError(fmt.Errorf("api: build request: %w", err), core.ErrTransportFailure)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	if spec.RequiresAuth {
		token, err := c.vault.Get(vault.KeyToken)
		if err != nil && !errors.Is(err, vault.ErrNotFound) {
			c.log.Warn("vault read failed", zap.Error(err))
		}
		if token == "" {
			return zero, core.NewError(core.ErrUnauthorized, "api: authentication required but no token stored")
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.Debug("request", zap.String("method", spec.Method), zap.String("url", u.String()))
	resp, err := c.http.Do(req)
	if err != nil {
		return zero, core.WrapError(fmt.Errorf("api: %s %s: %w", spec.Method, spec.Path, err), core.ErrTransportFailure)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, core.NewError(core.ErrMalformedResponse,
			fmt.Sprintf("api: read response for %s %s", spec.Method, spec.Path),
			core.WithStatus(resp.StatusCode), core.WithWrapped(err))
	}
	c.log.Debug("response", zap.Int("status", resp.StatusCode), zap.String("path", u.Path))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return decodeResponse[T](c, data, resp.StatusCode)
	}
	return zero, c.mapStatus(resp.StatusCode, u, data)
}

func (c *Client) resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, core.NewError(core.ErrInvalidEndpoint,
			fmt.Sprintf("api: invalid path %q", path), core.WithWrapped(err))
	}
	u := c.base.ResolveReference(ref)
	if !u.IsAbs() || u.Host == "" {
		return nil, core.NewError(core.ErrInvalidEndpoint,
			fmt.Sprintf("api: path %q does not resolve to an absolute reference", path))
	}
	return u, nil
}

func encodeBody(spec RequestSpec) (io.Reader, string, error) {
	switch spec.Encoding {
	case EncodingMultipart:
		buf := &bytes.Buffer{}
		w := multipart.NewWriter(buf)
		for key, value := range spec.Fields {
			if err := w.WriteField(key, value); err != nil {
				return nil, "", core.WrapError(fmt.Errorf("api: write form field %s: %w", key, err), core.ErrTransportFailure)
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", core.WrapError(fmt.Errorf("api: finalize form body: %w", err), core.ErrTransportFailure)
		}
		return buf, w.FormDataContentType(), nil
	default:
		if spec.Body == nil {
			return nil, "application/json", nil
		}
		data, err := json.Marshal(spec.Body)
		if err != nil {
			return nil, "", core.WrapError(fmt.Errorf("api: encode request body: %w", err), core.ErrTransportFailure)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func decodeResponse[T any](c *Client, data []byte, status int) (T, error) {
	var out T
	if len(data) == 0 {
		if _, ok := any(out).(Empty); ok {
			return out, nil
		}
		return out, core.NewError(core.ErrDomain,
			"Received empty response body but expected content.", core.WithStatus(status))
	}
	if err := json.Unmarshal(data, &out); err != nil {
		// Raw bytes stay in the log and on the error for diagnosis; the
		// user only ever sees the fixed decoding sentence.
		c.log.Error("decode response", zap.Error(err), zap.ByteString("raw", truncate(data, 1000)))
		return out, core.NewError(core.ErrDecodingFailure, "api: decode response body",
			core.WithStatus(status), core.WithWrapped(err), core.WithRawBody(data))
	}
	return out, nil
}

func (c *Client) mapStatus(status int, u *url.URL, body []byte) error {
	detail := errorDetail(body)
	switch {
	case status == http.StatusUnauthorized:
		if err := vault.Clear(c.vault); err != nil {
			c.log.Error("clear credentials after 401", zap.Error(err))
		}
		return core.NewError(core.ErrUnauthorized, "api: unauthorized", core.WithStatus(status))
	case status == http.StatusBadRequest:
		return domainError(status, fallback(detail, "Bad Request"))
	case status == http.StatusForbidden:
		return domainError(status, fallback(detail, "Forbidden"))
	case status == http.StatusNotFound:
		return domainError(status, fallback(detail, "Resource Not Found at "+u.Path))
	case status == http.StatusUnprocessableEntity:
		return domainError(status, fallback(detail, "Validation Error"))
	case status >= 500 && status <= 599:
		return domainError(status, fmt.Sprintf("Server Error (%d): %s", status, fallback(detail, "Internal Server Error")))
	default:
		return domainError(status, fmt.Sprintf("Server returned status code %d: %s", status, fallback(detail, "Unknown server error")))
	}
}

func domainError(status int, message string) error {
	return core.NewError(core.ErrDomain, message, core.WithStatus(status))
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncate(data []byte, n int) []byte {
	if len(data) <= n {
		return data
	}
	return data[:n]
}
