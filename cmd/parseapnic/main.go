package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"

	"parseapnic/internal/fetch"
	"parseapnic/internal/pipeline"
)

func main() {
	inputFile := flag.String("input", "", "Parse a local delegation file instead of downloading")
	url := flag.String("url", fetch.DefaultURL, "Delegation file URL")
	outDir := flag.String("out", "data", "Output directory")
	timeout := flag.Duration("timeout", 5*time.Minute, "Download timeout")
	flag.Parse()

	isTerminal := isatty.IsTerminal(os.Stdout.Fd())
	progress := func(format string, args ...any) {
		if isTerminal {
			fmt.Printf(format+"\n", args...)
		}
	}

	path := *inputFile
	if path == "" {
		progress("Downloading %s ...", *url)
		downloaded, err := fetch.Download(*url, *timeout)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer os.RemoveAll(filepath.Dir(downloaded))
		path = downloaded
	}

	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()

	progress("Parsing %s ...", path)
	stats, err := pipeline.Run(f, *outDir, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	progress("Done: %d records (%d parse failures, %d range failures) written to %s",
		stats.TotalRecords, stats.ParseFailures, stats.RangeFailures, *outDir)
}
