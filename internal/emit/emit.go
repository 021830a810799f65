// Package emit writes the run's terminal artifacts: JSON dumps of the
// records, groupings and stats, plus plain-text CIDR lists. Every file is
// written to a temp file in the target directory and renamed into place, so
// a failed run never leaves a half-written artifact behind.
package emit

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"lukechampine.com/uint128"

	"parseapnic/internal/aggregate"
	"parseapnic/internal/delegation"
)

var log = logging.Logger("parseapnic/emit")

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

const cidrListDir = "cidr_lists"

// Write emits every output document under dir. File names follow the
// published data layout: apnic_data.json, ipv4_by_country.json,
// ipv6_by_country.json, stats.json and cidr_lists/{all,<cc>}_{ipv4,ipv6}.txt.
func Write(dir string, res *aggregate.Result) error {
	if err := os.MkdirAll(filepath.Join(dir, cidrListDir), dirPerm); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	docs := []struct {
		name string
		v    any
	}{
		{"apnic_data.json", res.Records},
		{"ipv4_by_country.json", res.IPv4ByCountry},
		{"ipv6_by_country.json", res.IPv6ByCountry},
		{"stats.json", res.Stats},
	}
	for _, doc := range docs {
		if err := writeJSON(filepath.Join(dir, doc.name), doc.v); err != nil {
			return err
		}
	}

	if err := writeCIDRList(filepath.Join(dir, cidrListDir, "all_ipv4.txt"), res.IPv4); err != nil {
		return err
	}
	if err := writeCIDRList(filepath.Join(dir, cidrListDir, "all_ipv6.txt"), res.IPv6); err != nil {
		return err
	}

	if err := writeCountryLists(dir, res.IPv4ByCountry, "ipv4"); err != nil {
		return err
	}
	if err := writeCountryLists(dir, res.IPv6ByCountry, "ipv6"); err != nil {
		return err
	}

	log.Infow("output written", "dir", dir,
		"ipv4_countries", len(res.IPv4ByCountry), "ipv6_countries", len(res.IPv6ByCountry))
	return nil
}

func writeCountryLists(dir string, byCountry map[string][]*delegation.Record, family string) error {
	codes := make([]string, 0, len(byCountry))
	for cc := range byCountry {
		codes = append(codes, cc)
	}
	sort.Strings(codes)

	for _, cc := range codes {
		entries := cidrEntries(byCountry[cc])
		if len(entries) == 0 {
			continue
		}
		name := strings.ToLower(cc) + "_" + family + ".txt"
		if err := writeEntries(filepath.Join(dir, cidrListDir, name), entries); err != nil {
			return err
		}
	}
	return nil
}

func writeCIDRList(path string, recs []*delegation.Record) error {
	return writeEntries(path, cidrEntries(recs))
}

type cidrEntry struct {
	start  uint128.Uint128
	prefix int
	text   string
}

// cidrEntries flattens the usable records into one entry per CIDR block,
// sorted ascending by numeric start address (2.0.0.0/8 before 10.0.0.0/8),
// shorter prefix first on ties.
func cidrEntries(recs []*delegation.Record) []cidrEntry {
	var entries []cidrEntry
	for _, rec := range recs {
		if !rec.Usable() {
			continue
		}
		for _, block := range rec.CIDRBlocks {
			e, ok := parseEntry(block)
			if !ok {
				log.Warnf("skipping unparseable CIDR block %q", block)
				continue
			}
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if c := entries[i].start.Cmp(entries[j].start); c != 0 {
			return c < 0
		}
		return entries[i].prefix < entries[j].prefix
	})
	return entries
}

func parseEntry(block string) (cidrEntry, bool) {
	slash := strings.IndexByte(block, '/')
	if slash < 0 {
		return cidrEntry{}, false
	}
	ip := net.ParseIP(block[:slash])
	prefix, err := strconv.Atoi(block[slash+1:])
	if ip == nil || err != nil {
		return cidrEntry{}, false
	}
	return cidrEntry{
		start:  uint128.FromBytesBE(ip.To16()),
		prefix: prefix,
		text:   block,
	}, true
}

func writeEntries(path string, entries []cidrEntry) error {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.text)
		b.WriteByte('\n')
	}
	return writeFileAtomic(path, []byte(b.String()))
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Chmod(filePerm)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
