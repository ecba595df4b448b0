// Package downloader runs a single download attempt and maps its result onto
// the integer status codes reported to the caller.
//
// # Usage
//
//	outcome := downloader.Download(ctx, downloader.Request{
//	    URL:         "https://example.com/setup.exe",
//	    Destination: `C:\Temp\setup.exe`,
//	}, downloader.Options{
//	    NewSink: func(meta nsishttp.Metadata) progress.Sink { ... },
//	})
//	code := outcome.Code()
//
// # Status Codes
//
//	0      download and write succeeded
//	1      local I/O failure (directory, file, write, or read after connect)
//	3xx-5xx the HTTP status of a non-2xx response
//	499    transport failure before any HTTP status was obtained
//
// A download is attempted exactly once. Retrying is left to the caller, which
// can simply call Download again: the destination is always truncated.
package downloader
