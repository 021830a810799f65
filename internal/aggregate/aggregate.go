// Package aggregate groups enriched delegation records by country and
// address family and derives the run's summary statistics.
package aggregate

import (
	"time"

	"github.com/biter777/countries"
	"lukechampine.com/uint128"

	"parseapnic/internal/delegation"
	"parseapnic/internal/iprange"
)

// Stats is the summary document written alongside the record dumps. IPv6
// address totals routinely exceed 64 bits, so they travel as a decimal
// string.
type Stats struct {
	TotalRecords       int               `json:"total_records"`
	RecordsByType      map[string]int    `json:"records_by_type"`
	RecordsByStatus    map[string]int    `json:"records_by_status"`
	RecordsByCountry   map[string]int    `json:"records_by_country"`
	CountriesWithIPv4  int               `json:"countries_with_ipv4"`
	CountriesWithIPv6  int               `json:"countries_with_ipv6"`
	TotalIPv4Addresses uint64            `json:"total_ipv4_addresses"`
	TotalIPv6Addresses string            `json:"total_ipv6_addresses"`
	TotalASNs          uint64            `json:"total_asns"`
	ParseFailures      int               `json:"parse_failures"`
	RangeFailures      int               `json:"range_failures"`
	CountryNames       map[string]string `json:"country_names"`
	GeneratedAt        string            `json:"generated_at"`
}

// Result is everything a single run produces, ready for the emitter.
type Result struct {
	Records []*delegation.Record

	IPv4 []*delegation.Record
	IPv6 []*delegation.Record

	IPv4ByCountry map[string][]*delegation.Record
	IPv6ByCountry map[string][]*delegation.Record

	Stats Stats
}

// Aggregate builds the grouped structures and stats from records in input
// order. Grouping preserves that order; nothing here sorts.
func Aggregate(records []*delegation.Record, parseFailures, rangeFailures int, now time.Time) *Result {
	res := &Result{
		Records:       records,
		IPv4ByCountry: make(map[string][]*delegation.Record),
		IPv6ByCountry: make(map[string][]*delegation.Record),
		Stats: Stats{
			TotalRecords:     len(records),
			RecordsByType:    make(map[string]int),
			RecordsByStatus:  make(map[string]int),
			RecordsByCountry: make(map[string]int),
			ParseFailures:    parseFailures,
			RangeFailures:    rangeFailures,
			CountryNames:     make(map[string]string),
			GeneratedAt:      now.UTC().Format(time.RFC3339),
		},
	}

	var v6Total uint128.Uint128
	for _, rec := range records {
		res.Stats.RecordsByType[string(rec.Type)]++
		res.Stats.RecordsByStatus[rec.Status]++
		res.Stats.RecordsByCountry[rec.Country]++

		if _, seen := res.Stats.CountryNames[rec.Country]; !seen {
			if cc := countries.ByName(rec.Country); cc != countries.Unknown {
				res.Stats.CountryNames[rec.Country] = cc.String()
			}
		}

		switch rec.Type {
		case delegation.TypeIPv4:
			res.IPv4 = append(res.IPv4, rec)
			res.IPv4ByCountry[rec.Country] = append(res.IPv4ByCountry[rec.Country], rec)
			res.Stats.TotalIPv4Addresses += rec.Count
		case delegation.TypeIPv6:
			res.IPv6 = append(res.IPv6, rec)
			res.IPv6ByCountry[rec.Country] = append(res.IPv6ByCountry[rec.Country], rec)
			v6Total = v6Total.Add(iprange.Addresses(rec))
		case delegation.TypeASN:
			res.Stats.TotalASNs += rec.Count
		}
	}

	res.Stats.TotalIPv6Addresses = v6Total.String()
	res.Stats.CountriesWithIPv4 = len(res.IPv4ByCountry)
	res.Stats.CountriesWithIPv6 = len(res.IPv6ByCountry)
	return res
}
