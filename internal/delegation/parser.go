package delegation

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const fieldCount = 7

// LineError marks a single malformed line. The parser keeps going after
// returning one; callers count these and move on.
type LineError struct {
	Line   int
	Text   string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// Parser streams delegation records out of a delegated-format file. Comment,
// version and summary lines are skipped silently; malformed allocation lines
// come back as *LineError so the caller can tally them without aborting.
type Parser struct {
	s    *bufio.Scanner
	line int
}

func NewParser(r io.Reader) *Parser {
	return &Parser{s: bufio.NewScanner(r)}
}

// Next returns the next record, a *LineError, or io.EOF.
func (p *Parser) Next() (*Record, error) {
	for p.s.Scan() {
		p.line++
		line := strings.TrimRight(p.s.Text(), "\r")

		rec, err := p.parseLine(line)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		return rec, nil
	}
	if err := p.s.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// parseLine returns (nil, nil) for lines that carry no allocation: comments,
// blank lines, the version header and per-type summary rows.
func (p *Parser) parseLine(line string) (*Record, error) {
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}

	fields := strings.Split(line, "|")

	// Version header: first field is the format version number, e.g.
	// 2|apnic|20240101|...
	if _, err := strconv.ParseFloat(fields[0], 64); err == nil {
		return nil, nil
	}

	// Summary rows use "*" in the country and start fields and end in a
	// literal "summary", e.g. apnic|*|ipv4|*|46462|summary
	if len(fields) >= 2 && fields[1] == "*" {
		return nil, nil
	}
	if fields[len(fields)-1] == "summary" {
		return nil, nil
	}

	if len(fields) < fieldCount {
		return nil, &LineError{Line: p.line, Text: line, Reason: "short line"}
	}

	typ := Type(fields[2])
	switch typ {
	case TypeIPv4, TypeIPv6, TypeASN:
	default:
		return nil, &LineError{Line: p.line, Text: line, Reason: "unknown type"}
	}

	count, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		return nil, &LineError{Line: p.line, Text: line, Reason: "bad count"}
	}

	return &Record{
		Registry: fields[0],
		Country:  normalizeCountry(fields[1]),
		Type:     typ,
		Start:    fields[3],
		Count:    count,
		Date:     fields[5],
		Status:   fields[6],
	}, nil
}

// normalizeCountry uppercases a two-letter code and maps everything else to
// the ZZ sentinel. Codes outside ISO-3166 (regional markers like "AP") are
// kept verbatim: the registry uses them on purpose.
func normalizeCountry(cc string) string {
	if len(cc) != 2 {
		return UnknownCountry
	}
	for _, c := range cc {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return UnknownCountry
		}
	}
	return strings.ToUpper(cc)
}
