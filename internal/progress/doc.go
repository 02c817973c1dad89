// Package progress renders download progress on a terminal.
//
// The reporter is driven by percentages, so the transfer code only needs a
// func(uint64) to report through.
//
// # Usage
//
//	reporter := progress.NewReporter(progress.Options{
//	    Name:      file.Name,
//	    TotalSize: file.Size,
//	    Output:    os.Stderr,
//	})
//
//	reporter.Start()
//	buf := make([]byte, downloader.DefaultBufferSize)
//	_, err := downloader.Transfer(ctx, body, total, out, buf, reporter.Report)
//	if err != nil {
//	    reporter.Abort()
//	    return err
//	}
//	reporter.Finish()
//
// # Output Format
//
//	[gdown] Downloading: file.tar.gz (2560 MB) | 2.5 GiB
//	[gdown] [################------------------------]  40%
//	[gdown] Complete: 2.5 GiB in 1m 12s | Average speed: 35 MiB/s
package progress
