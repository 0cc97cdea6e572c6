package ai

import "net/http"

type clientOptions struct {
	model   string
	baseURL string
	http    *http.Client
}

// Option configures a client.
type Option func(*clientOptions)

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithBaseURL points the client at another endpoint, e.g. a proxy or test server.
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		if url != "" {
			o.baseURL = url
		}
	}
}

// WithHTTPClient sets the transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) {
		if c != nil {
			o.http = c
		}
	}
}

func buildOptions(model, baseURL string, opts []Option) clientOptions {
	o := clientOptions{model: model, baseURL: baseURL, http: &http.Client{Timeout: DefaultTimeout}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
