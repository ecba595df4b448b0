// Package http provides the HTTP client used to fetch a single download.
//
// This package handles:
//   - One GET per download, redirects followed up to a limit
//   - Classifying failures as status errors (non-2xx) or transport errors
//   - Reading the size hint and validators from the response headers
//   - Connect and inactivity timeouts
//
// # Usage
//
//	client := http.NewClient(http.Options{
//	    ConnectTimeout:    30 * time.Second,
//	    InactivityTimeout: time.Minute,
//	})
//
//	resp, err := client.Fetch(ctx, url)
//	if code, ok := http.StatusCode(err); ok {
//	    // server answered code
//	}
//	defer resp.Body.Close()
//	size, known := resp.Metadata.Size()
package http
