package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/healthsyncai/healthsync-go/vault"
)

type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
	vault      vault.Vault
}

func defaultOptions() options {
	return options{
		baseURL: "http://localhost:8000",
		timeout: 30 * time.Second,
		logger:  zap.NewNop(),
	}
}

func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithVault(v vault.Vault) Option {
	return func(o *options) { o.vault = v }
}
