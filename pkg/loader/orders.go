package loader

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// LoadOrders decodes the orders export: a JSON array of records, or one record per line when
// jsonLines is set.
func LoadOrders(r io.Reader, jsonLines bool) ([]models.OrderRecord, error) {
	if jsonLines {
		return loadOrderLines(r)
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(b) {
		return nil, fmt.Errorf("invalid JSON")
	}
	doc := gjson.ParseBytes(b)
	if !doc.IsArray() {
		return nil, fmt.Errorf("expected a JSON array of orders")
	}

	var orders []models.OrderRecord
	var decodeErr error
	doc.ForEach(func(key, value gjson.Result) bool {
		order, err := parseOrder(value)
		if err != nil {
			decodeErr = fmt.Errorf("order %d: %w", key.Int(), err)
			return false
		}
		orders = append(orders, order)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return orders, nil
}

func loadOrderLines(r io.Reader) ([]models.OrderRecord, error) {
	var orders []models.OrderRecord

	sc := bufio.NewScanner(r)
	buf := make([]byte, 0, 1024*1024)
	sc.Buffer(buf, 20*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if !gjson.Valid(text) {
			return nil, fmt.Errorf("line %d: invalid JSON", line)
		}
		order, err := parseOrder(gjson.Parse(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		orders = append(orders, order)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func parseOrder(value gjson.Result) (models.OrderRecord, error) {
	if !value.IsObject() {
		return models.OrderRecord{}, fmt.Errorf("expected an object, got %s", value.Type)
	}

	return models.OrderRecord{
		ID:           scalarString(value.Get("id")),
		UserID:       scalarString(value.Get("user_id")),
		BookID:       scalarString(value.Get("book_id")),
		Quantity:     value.Get("quantity").Int(),
		TimestampRaw: scalarString(value.Get("timestamp")),
		UnitPriceRaw: parsePrice(value.Get("unit_price")),
	}, nil
}

// parsePrice keeps the unit price in whatever shape it arrived in
func parsePrice(value gjson.Result) models.RawPrice {
	switch {
	case !value.Exists() || value.Type == gjson.Null:
		return models.RawPrice{Kind: models.RawPriceNull}
	case value.Type == gjson.Number:
		return models.NumberPrice(value.Num)
	case value.Type == gjson.String:
		return models.TextPrice(value.Str)
	case value.IsArray():
		codes := make([]int, 0)
		for _, c := range value.Array() {
			codes = append(codes, int(c.Int()))
		}
		return models.CodesPrice(codes...)
	}
	return models.TextPrice(value.Raw)
}

func scalarString(value gjson.Result) string {
	if !value.Exists() || value.Type == gjson.Null {
		return ""
	}
	return value.String()
}
