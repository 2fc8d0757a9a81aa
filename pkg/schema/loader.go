package schema

import (
	"context"
	"io/fs"
	"net/http"
	"time"
)

// Loader fetches raw form definition documents.
type Loader interface {
	Load(ctx context.Context, src Source) (Document, error)
}

// LoaderOptions configures loader implementations.
type LoaderOptions struct {
	// FileSystem enables loading SourceKindFS entries.
	FileSystem fs.FS

	// HTTPClient enables URL sources. Nil means URL sources are disabled
	// unless AllowHTTPFallback is true.
	HTTPClient *http.Client

	// AllowHTTPFallback enables URL sources with a default client.
	AllowHTTPFallback bool

	// RequestTimeout caps remote fetch durations.
	RequestTimeout time.Duration

	// Headers are sent with every URL request, e.g. Authorization.
	Headers http.Header
}

// LoaderOption mutates LoaderOptions prior to construction.
type LoaderOption func(*LoaderOptions)

// WithFileSystem injects an fs.FS for SourceKindFS sources.
func WithFileSystem(files fs.FS) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.FileSystem = files
	}
}

// WithHTTPClient injects a custom HTTP client for remote definitions.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.HTTPClient = client
	}
}

// WithHTTPFallback enables HTTP loading with a default client and an
// optional timeout.
func WithHTTPFallback(timeout time.Duration) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.AllowHTTPFallback = true
		opts.RequestTimeout = timeout
	}
}

// WithBearerToken sends "Authorization: Bearer <token>" with URL requests.
func WithBearerToken(token string) LoaderOption {
	return func(opts *LoaderOptions) {
		if token == "" {
			return
		}
		if opts.Headers == nil {
			opts.Headers = make(http.Header)
		}
		opts.Headers.Set("Authorization", "Bearer "+token)
	}
}

// NewLoaderOptions applies a set of LoaderOption values and returns the
// resulting configuration.
func NewLoaderOptions(options ...LoaderOption) LoaderOptions {
	cfg := LoaderOptions{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return cfg
}
