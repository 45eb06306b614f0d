// Package http provides the HTTP client shared by resolvers and segment
// downloads.
//
// This package handles:
//   - Connection pooling across all requests of a dump session
//   - A fixed set of static headers merged with per-request headers (Referer)
//   - Retry with exponential backoff on 5xx responses and connection failures
//   - Immediate failure on 4xx responses
//   - Optional request rate limiting and transport tracing
//
// # Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	// Fetch a text document (playlist, manifest page)
//	text, err := client.GetText(ctx, url, nil)
//
//	// Stream a segment
//	body, err := client.Get(ctx, segmentURL, http.Header{"Referer": {referer}})
//	defer body.Close()
package http
