package iprange

import (
	"math"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"parseapnic/internal/delegation"
)

func TestComputeIPv4PowerOfTwo(t *testing.T) {
	tests := []struct {
		name  string
		start string
		count uint64
		end   string
		cidr  string
	}{
		{"1024 addresses", "8.8.8.0", 1024, "8.8.11.255", "8.8.8.0/22"},
		{"single address", "192.0.2.1", 1, "192.0.2.1", "192.0.2.1/32"},
		{"full /8", "1.0.0.0", 1 << 24, "1.255.255.255", "1.0.0.0/8"},
		{"/16 block", "103.0.0.0", 65536, "103.0.255.255", "103.0.0.0/16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &delegation.Record{Type: delegation.TypeIPv4, Start: tt.start, Count: tt.count}
			require.NoError(t, Compute(rec))
			assert.Equal(t, tt.end, rec.End)
			assert.Equal(t, tt.cidr, rec.CIDR)
			assert.Equal(t, []string{tt.cidr}, rec.CIDRBlocks, "power-of-two count must be a single block")
		})
	}
}

func TestComputeIPv4NonPowerOfTwo(t *testing.T) {
	// 768 = 512 + 256: the minimal exact cover is a /23 then a /24.
	rec := &delegation.Record{Type: delegation.TypeIPv4, Start: "8.8.8.0", Count: 768}
	require.NoError(t, Compute(rec))

	assert.Equal(t, "8.8.10.255", rec.End)
	assert.Equal(t, []string{"8.8.8.0/23", "8.8.10.0/24"}, rec.CIDRBlocks)
	assert.Equal(t, "8.8.8.0/23", rec.CIDR, "cidr field carries the first block")

	// 1.0.4.0 + 1536 = 1024 @ 1.0.4.0, then 512 @ 1.0.8.0.
	rec = &delegation.Record{Type: delegation.TypeIPv4, Start: "1.0.4.0", Count: 1536}
	require.NoError(t, Compute(rec))
	assert.Equal(t, "1.0.9.255", rec.End)
	assert.Equal(t, []string{"1.0.4.0/22", "1.0.8.0/23"}, rec.CIDRBlocks)
}

func TestComputeIPv6(t *testing.T) {
	rec := &delegation.Record{Type: delegation.TypeIPv6, Start: "2001:200::", Count: 32}
	require.NoError(t, Compute(rec))

	assert.Equal(t, "2001:200::/32", rec.CIDR)
	assert.Equal(t, "2001:200:ffff:ffff:ffff:ffff:ffff:ffff", rec.End)
	assert.Equal(t, []string{"2001:200::/32"}, rec.CIDRBlocks)
}

// The end address keeps the network bits of start and sets every host bit.
func TestComputeIPv6EndBits(t *testing.T) {
	tests := []struct {
		start  string
		prefix uint64
	}{
		{"2001:200::", 32},
		{"2400:da00::", 23},
		{"2001:db8:1234::", 48},
		{"::1", 128},
	}

	for _, tt := range tests {
		rec := &delegation.Record{Type: delegation.TypeIPv6, Start: tt.start, Count: tt.prefix}
		require.NoError(t, Compute(rec))

		start := uint128.FromBytesBE(net.ParseIP(tt.start).To16())
		end := uint128.FromBytesBE(net.ParseIP(rec.End).To16())
		host := uint128.Max.Rsh(uint(tt.prefix))
		network := uint128.Max.Xor(host)

		assert.Equal(t, host, end.And(host), "host bits all set: %s", tt.start)
		assert.Equal(t, start.And(network), end.And(network), "network bits unchanged: %s", tt.start)
	}
}

func TestComputeASN(t *testing.T) {
	rec := &delegation.Record{Type: delegation.TypeASN, Start: "1221", Count: 10}
	require.NoError(t, Compute(rec))

	assert.Equal(t, "1230", rec.End)
	assert.Empty(t, rec.CIDR)
	assert.Empty(t, rec.CIDRBlocks)
}

func TestComputeErrors(t *testing.T) {
	tests := []struct {
		name string
		rec  delegation.Record
	}{
		{"garbage ipv4 address", delegation.Record{Type: delegation.TypeIPv4, Start: "not-an-ip", Count: 256}},
		{"ipv6 address on ipv4 record", delegation.Record{Type: delegation.TypeIPv4, Start: "2001:db8::", Count: 256}},
		{"ipv4 address on ipv6 record", delegation.Record{Type: delegation.TypeIPv6, Start: "8.8.8.0", Count: 32}},
		{"ipv4 zero count", delegation.Record{Type: delegation.TypeIPv4, Start: "8.8.8.0", Count: 0}},
		{"ipv4 range overflow", delegation.Record{Type: delegation.TypeIPv4, Start: "255.255.255.0", Count: 512}},
		{"ipv6 prefix out of range", delegation.Record{Type: delegation.TypeIPv6, Start: "2001:db8::", Count: 129}},
		{"asn not a number", delegation.Record{Type: delegation.TypeASN, Start: "AS1221", Count: 1}},
		{"asn range overflow", delegation.Record{Type: delegation.TypeASN, Start: "4294967295", Count: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.rec
			err := Compute(&rec)
			var rangeErr *RangeError
			require.ErrorAs(t, err, &rangeErr)
			assert.Empty(t, rec.End, "failed record must stay untouched")
			assert.Empty(t, rec.CIDR)
		})
	}
}

// Parsing an emitted CIDR block back gives the original start and count.
func TestRoundTrip(t *testing.T) {
	tests := []struct {
		typ   delegation.Type
		start string
		count uint64
	}{
		{delegation.TypeIPv4, "8.8.8.0", 1024},
		{delegation.TypeIPv4, "103.0.0.0", 65536},
		{delegation.TypeIPv6, "2001:200::", 32},
		{delegation.TypeIPv6, "2400:da00::", 23},
	}

	for _, tt := range tests {
		rec := &delegation.Record{Type: tt.typ, Start: tt.start, Count: tt.count}
		require.NoError(t, Compute(rec))

		ip, ipNet, err := net.ParseCIDR(rec.CIDR)
		require.NoError(t, err)
		assert.Equal(t, tt.start, ip.String())

		ones, bits := ipNet.Mask.Size()
		if tt.typ == delegation.TypeIPv4 {
			assert.Equal(t, 32, bits)
			assert.Equal(t, tt.count, uint64(1)<<(bits-ones))
		} else {
			assert.Equal(t, tt.count, uint64(ones), "ipv6 count field is the prefix length")
		}
	}
}

func TestAddresses(t *testing.T) {
	assert.Equal(t, uint128.From64(1024),
		Addresses(&delegation.Record{Type: delegation.TypeIPv4, Count: 1024}))

	// /32 covers 2^96 addresses.
	want := uint128.From64(1).Lsh(96)
	assert.Equal(t, want, Addresses(&delegation.Record{Type: delegation.TypeIPv6, Count: 32}))

	assert.Equal(t, uint128.From64(1),
		Addresses(&delegation.Record{Type: delegation.TypeIPv6, Count: 128}))

	assert.Equal(t, uint128.Zero,
		Addresses(&delegation.Record{Type: delegation.TypeASN, Count: 10}))
}

func TestHostMaskBounds(t *testing.T) {
	assert.Equal(t, uint128.Max, hostMask(0))
	assert.Equal(t, uint128.Zero, hostMask(128))
	assert.Equal(t, uint128.From64(math.MaxUint64), hostMask(64))
}
