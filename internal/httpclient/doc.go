// Package httpclient builds and sends JSON requests to the issue tracker API.
//
// A [RequestBuilder] is bound to one base URL and an auth provider:
//
//	builder, err := httpclient.NewRequestBuilder(cfg.BaseURL, provider,
//		httpclient.WithTracePropagation(true))
//	req, err := builder.Build(ctx, http.MethodGet, "/projects/p-1", nil, nil)
//
// Every request carries Accept and Content-Type headers for JSON, a
// User-Agent, a fresh X-Request-Id and, when enabled, W3C trace context.
//
// [NewClient] returns an *http.Client whose transport keeps enough idle
// connections for a full batch of concurrent calls to the same host.
package httpclient
