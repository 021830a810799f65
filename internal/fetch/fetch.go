// Package fetch downloads the delegated statistics file.
package fetch

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cavaliergopher/grab/v3"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("parseapnic/fetch")

// DefaultURL is the daily-published APNIC delegation file.
const DefaultURL = "http://ftp.apnic.net/apnic/stats/apnic/delegated-apnic-latest"

// Download fetches url into a fresh temp directory and returns the path of
// the downloaded file. The caller owns the file and should remove it (or its
// directory) when done. Any network, timeout or HTTP failure is returned
// as-is; there is no retry.
func Download(url string, timeout time.Duration) (string, error) {
	dir, err := os.MkdirTemp("", "parseapnic-*")
	if err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}

	client := grab.NewClient()
	client.HTTPClient = &http.Client{Timeout: timeout}

	req, err := grab.NewRequest(dir, url)
	if err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("building download request: %w", err)
	}

	log.Infow("downloading delegation file", "url", url, "timeout", timeout)
	resp := client.Do(req)
	if err := resp.Err(); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}

	log.Infow("download complete", "file", resp.Filename, "bytes", resp.Size())
	return resp.Filename, nil
}
