// Package fetch implements the request policy: a GET against a feed URL
// under a bounded retry budget with linear backoff.
//
// A Client picks its User-Agent once at construction and sends it on every
// attempt of every call. A call succeeds on the first 2xx answer. Any
// transport error or non-2xx status is a failed attempt; after the k-th
// failure the client waits k times the base delay. When the budget runs
// out the call fails with a network error that unwraps to the last
// attempt's failure.
//
//	client := fetch.New(cfg.Fetch, fetch.WithLogger(log))
//	resp, err := client.Fetch(ctx, "https://www.tiktok.com/trending")
//	if errors.IsNetwork(err) {
//	    // errors.Unwrap(err) is the last failure
//	}
package fetch
