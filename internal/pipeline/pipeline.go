// Package pipeline runs the whole transformation: parse the raw delegation
// text, compute ranges, aggregate, and emit the output files.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"parseapnic/internal/aggregate"
	"parseapnic/internal/delegation"
	"parseapnic/internal/emit"
	"parseapnic/internal/iprange"
)

var log = logging.Logger("parseapnic/pipeline")

// Run consumes the raw delegation file from r and writes every output
// document under outDir. now stamps the stats document; pass a fixed time to
// make two runs over the same input byte-identical.
//
// Per-line failures are tallied in the returned stats and do not abort the
// run; only a read or write failure does.
func Run(r io.Reader, outDir string, now time.Time) (*aggregate.Stats, error) {
	records, parseFailures, rangeFailures, err := parseAll(r)
	if err != nil {
		return nil, err
	}

	res := aggregate.Aggregate(records, parseFailures, rangeFailures, now)
	log.Infow("aggregated records",
		"records", res.Stats.TotalRecords,
		"parse_failures", parseFailures,
		"range_failures", rangeFailures)

	if err := emit.Write(outDir, res); err != nil {
		return nil, err
	}
	return &res.Stats, nil
}

// parseAll drains the parser, enriching each record with its range. Records
// whose range cannot be computed count as range failures and are dropped.
func parseAll(r io.Reader) (records []*delegation.Record, parseFailures, rangeFailures int, err error) {
	p := delegation.NewParser(r)
	for {
		rec, err := p.Next()
		if errors.Is(err, io.EOF) {
			return records, parseFailures, rangeFailures, nil
		}
		if err != nil {
			var lineErr *delegation.LineError
			if errors.As(err, &lineErr) {
				log.Debugw("skipping malformed line", "line", lineErr.Line, "reason", lineErr.Reason)
				parseFailures++
				continue
			}
			return nil, 0, 0, fmt.Errorf("reading delegation file: %w", err)
		}

		if err := iprange.Compute(rec); err != nil {
			log.Debugw("skipping record with invalid range",
				"start", rec.Start, "type", rec.Type, "err", err)
			rangeFailures++
			continue
		}
		records = append(records, rec)
	}
}
