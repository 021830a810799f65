package delegation

// Type is the address family (or AS-number space) of a delegation record.
type Type string

const (
	TypeIPv4 Type = "ipv4"
	TypeIPv6 Type = "ipv6"
	TypeASN  Type = "asn"
)

// Statuses found in delegated files. Only allocated and assigned blocks are
// considered in practical use; the rest are bookkeeping rows.
const (
	StatusAllocated   = "allocated"
	StatusAssigned    = "assigned"
	StatusReserved    = "reserved"
	StatusAvailable   = "available"
	StatusUnallocated = "unallocated"
)

// UnknownCountry is the sentinel for rows whose country field is not a
// two-letter code (placeholder rows for unallocated blocks, mostly).
const UnknownCountry = "ZZ"

// Record is one delegation line. For ipv4 and asn records Count is a literal
// count of addresses or AS numbers; for ipv6 records the same field of the
// source file carries a prefix length, and Count holds that prefix.
//
// End and CIDR are not present in the source file; the iprange package
// derives them. For ranges that are not expressible as a single CIDR block,
// CIDR holds the first block of the covering set and CIDRBlocks the full set.
type Record struct {
	Registry string `json:"registry"`
	Country  string `json:"country"`
	Type     Type   `json:"type"`
	Start    string `json:"start"`
	Count    uint64 `json:"count"`
	Date     string `json:"date"`
	Status   string `json:"status"`

	End  string `json:"end,omitempty"`
	CIDR string `json:"cidr,omitempty"`

	CIDRBlocks []string `json:"-"`
}

// Usable reports whether the record belongs in CIDR list outputs.
func (r *Record) Usable() bool {
	return r.Status == StatusAllocated || r.Status == StatusAssigned
}
