package codec

import (
	"github.com/nikmy/sqlrelay/pkg/wire"
)

type BlobMode string

const (
	BlobBytes  BlobMode = "bytes"
	BlobBase64 BlobMode = "base64"
	BlobHex    BlobMode = "hex"
)

type DateMode string

const (
	// DateTime renders temporal columns as time.Time in UTC.
	DateTime DateMode = "date"
	// DateString renders them as RFC 3339 strings.
	DateString DateMode = "string"
	// DateNumber renders them as milliseconds since the Unix epoch (int64).
	DateNumber DateMode = "number"
)

// Policy controls how wire cells become Go values.
type Policy struct {
	// BigInt makes integer cells *big.Int instead of int64.
	BigInt bool `yaml:"bigint"`

	// JSON parses text and blob cells of JSON columns.
	JSON bool `yaml:"json"`

	Blob BlobMode `yaml:"blob"`
	Date DateMode `yaml:"date"`
}

func DefaultPolicy() Policy {
	return Policy{
		BigInt: true,
		JSON:   true,
		Blob:   BlobBytes,
		Date:   DateTime,
	}
}

// Validate rejects unknown modes. Empty modes are accepted and mean the default.
func (p Policy) Validate() error {
	switch p.Blob {
	case "", BlobBytes, BlobBase64, BlobHex:
	default:
		return &wire.UnknownValueError{Kind: "blob mode", Value: string(p.Blob)}
	}

	switch p.Date {
	case "", DateTime, DateString, DateNumber:
	default:
		return &wire.UnknownValueError{Kind: "date mode", Value: string(p.Date)}
	}

	return nil
}

func (p Policy) normalized() Policy {
	if p.Blob == "" {
		p.Blob = BlobBytes
	}
	if p.Date == "" {
		p.Date = DateTime
	}
	return p
}
