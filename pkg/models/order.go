package models

import (
	"time"
)

// RawPrice carries an unparsed unit price. Exactly one of Number, Text or Codes is meaningful,
// selected by Kind.
type RawPrice struct {
	Kind   RawPriceKind `json:"kind"`
	Number float64      `json:"number,omitempty"`
	Text   string       `json:"text,omitempty"`
	Codes  []int        `json:"codes,omitempty"`
}

type RawPriceKind string

const (
	RawPriceNull   RawPriceKind = "null"
	RawPriceNumber RawPriceKind = "number"
	RawPriceText   RawPriceKind = "text"
	RawPriceCodes  RawPriceKind = "codes"
)

func NumberPrice(n float64) RawPrice {
	return RawPrice{Kind: RawPriceNumber, Number: n}
}

func TextPrice(s string) RawPrice {
	return RawPrice{Kind: RawPriceText, Text: s}
}

func CodesPrice(codes ...int) RawPrice {
	return RawPrice{Kind: RawPriceCodes, Codes: codes}
}

// OrderRecord is a row of the orders table as loaded
type OrderRecord struct {
	ID           string   `json:"id"`
	UserID       string   `json:"user_id"`
	BookID       string   `json:"book_id"`
	Quantity     int64    `json:"quantity"`
	TimestampRaw string   `json:"timestamp"`
	UnitPriceRaw RawPrice `json:"unit_price"`
}

// NormalizedOrder is an order with derived fields and the identities of its matched users.
// Row is the position of the order in the loaded table and is stable for the whole run.
type NormalizedOrder struct {
	OrderRecord
	Row          int        `json:"row"`
	Timestamp    *time.Time `json:"normalized_timestamp,omitempty"`
	Date         string     `json:"date,omitempty"`
	UnitPriceUSD float64    `json:"unit_price_usd"`
	PaidPrice    float64    `json:"paid_price"`
	Identities   []Identity `json:"identities,omitempty"`
}

// DateLayout is the calendar date format used for daily revenue keys
const DateLayout = "2006-01-02"
