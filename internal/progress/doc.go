// Package progress provides progress reporting for segment downloads.
//
// Every finished segment (downloaded, skipped or failed) prints one running
// line with the completed count, the scheduled total and the percentage.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    Total:   len(jobs),
//	    Workers: 10,
//	    Output:  os.Stderr,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	reporter.SegmentStarted()
//	reporter.SegmentCompleted("12.ts", n)
//
// # Output Format
//
//	[webinardump] Downloading 120 segments | Workers: 10
//	[webinardump] Got 3/120 (12.ts) [2.5%]
//	[webinardump] Skipped 4/120 (13.ts) [3.3%]
//	[webinardump] Done: 120 segments | 1.52 GB | Total time: 3m 12s | Average speed: 8.10 MB/s
package progress
