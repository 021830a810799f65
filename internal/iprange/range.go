// Package iprange derives end addresses and CIDR covering sets for
// delegation records.
package iprange

import (
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"strconv"

	"github.com/mikioh/ipaddr"
	"lukechampine.com/uint128"

	"parseapnic/internal/delegation"
)

const maxASN = math.MaxUint32

// RangeError marks a record whose range cannot be computed: bad address
// syntax for its type, a zero count, or a range running past the end of the
// address space.
type RangeError struct {
	Start  string
	Type   delegation.Type
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Type, e.Start, e.Reason)
}

// Compute fills in End, CIDR and CIDRBlocks on rec. The record is otherwise
// untouched on failure.
func Compute(rec *delegation.Record) error {
	switch rec.Type {
	case delegation.TypeIPv4:
		return computeIPv4(rec)
	case delegation.TypeIPv6:
		return computeIPv6(rec)
	case delegation.TypeASN:
		return computeASN(rec)
	default:
		return &RangeError{Start: rec.Start, Type: rec.Type, Reason: "unknown type"}
	}
}

func computeIPv4(rec *delegation.Record) error {
	ip := net.ParseIP(rec.Start)
	if ip == nil || ip.To4() == nil {
		return &RangeError{Start: rec.Start, Type: rec.Type, Reason: "invalid IPv4 address"}
	}
	if rec.Count == 0 {
		return &RangeError{Start: rec.Start, Type: rec.Type, Reason: "zero count"}
	}

	start := uint64(binary.BigEndian.Uint32(ip.To4()))
	end := start + rec.Count - 1
	if end > math.MaxUint32 {
		return &RangeError{Start: rec.Start, Type: rec.Type, Reason: "range exceeds IPv4 address space"}
	}

	endIP := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(endIP, uint32(end))

	blocks := ipaddr.Summarize(ip, endIP)
	if len(blocks) == 0 {
		return &RangeError{Start: rec.Start, Type: rec.Type, Reason: "no covering CIDR set"}
	}

	cidrs := make([]string, len(blocks))
	for i := range blocks {
		cidrs[i] = blocks[i].String()
	}

	rec.End = endIP.String()
	rec.CIDR = cidrs[0]
	rec.CIDRBlocks = cidrs
	return nil
}

func computeIPv6(rec *delegation.Record) error {
	ip := net.ParseIP(rec.Start)
	if ip == nil || ip.To4() != nil || ip.To16() == nil {
		return &RangeError{Start: rec.Start, Type: rec.Type, Reason: "invalid IPv6 address"}
	}
	// The count field of an ipv6 line is a prefix length, not a count.
	if rec.Count > 128 {
		return &RangeError{Start: rec.Start, Type: rec.Type, Reason: "prefix length out of range"}
	}

	start := uint128.FromBytesBE(ip.To16())
	end := start.Or(hostMask(uint(rec.Count)))

	endIP := make(net.IP, net.IPv6len)
	end.PutBytesBE(endIP)

	cidr := rec.Start + "/" + strconv.FormatUint(rec.Count, 10)
	rec.End = endIP.String()
	rec.CIDR = cidr
	rec.CIDRBlocks = []string{cidr}
	return nil
}

func computeASN(rec *delegation.Record) error {
	start, err := strconv.ParseUint(rec.Start, 10, 64)
	if err != nil {
		return &RangeError{Start: rec.Start, Type: rec.Type, Reason: "invalid AS number"}
	}
	if rec.Count == 0 {
		return &RangeError{Start: rec.Start, Type: rec.Type, Reason: "zero count"}
	}
	end := start + rec.Count - 1
	if end < start || end > maxASN {
		return &RangeError{Start: rec.Start, Type: rec.Type, Reason: "range exceeds AS number space"}
	}

	// No CIDR for AS-number ranges.
	rec.End = strconv.FormatUint(end, 10)
	return nil
}

// hostMask returns the mask with every host bit of a /prefix block set.
func hostMask(prefix uint) uint128.Uint128 {
	return uint128.Max.Rsh(prefix)
}

// Addresses returns the number of addresses a record covers: the literal
// count for ipv4, 2^(128-prefix) for ipv6. Reported as zero for asn records.
func Addresses(rec *delegation.Record) uint128.Uint128 {
	switch rec.Type {
	case delegation.TypeIPv4:
		return uint128.From64(rec.Count)
	case delegation.TypeIPv6:
		if rec.Count > 128 {
			return uint128.Zero
		}
		if rec.Count == 0 {
			// 2^128 does not fit; saturate.
			return uint128.Max
		}
		return hostMask(uint(rec.Count)).Add64(1)
	default:
		return uint128.Zero
	}
}
