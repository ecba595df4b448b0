// Package progress provides the progress observer used while copying a
// download to disk.
//
// The copier reports every chunk it has written to a Sink. A Tracker turns
// those chunk sizes into running totals and percentages using the size hint
// captured from the response; the percentage is undefined when the server did
// not declare a size.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    URL:      url,
//	    Total:    size,
//	    HasTotal: known,
//	    Output:   os.Stderr,
//	})
//
//	n, err := copier.Copy(body, file, reporter, 0)
//	reporter.Finish()
//
// # Output Format
//
//	Downloading https://example.com/setup.exe ...
//	512 / 1024 KiB  - 50.00%
//	Downloaded 1.0 MiB in 2s (512 KiB/s)
package progress
