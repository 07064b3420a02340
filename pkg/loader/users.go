package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
)

var userColumns = []string{"id", "name", "address", "phone", "email"}

// LoadUsers decodes users.csv. Columns are matched by header name; missing columns and short
// rows read as "".
func LoadUsers(r io.Reader) ([]models.UserRecord, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})

	cr := csv.NewReader(bytes.NewReader(b))
	cr.FieldsPerRecord = -1

	headers, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header")
	}
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := index["id"]; !ok {
		return nil, fmt.Errorf("missing %q column in header %v", "id", headers)
	}

	var users []models.UserRecord
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}
		users = append(users, models.UserRecord{
			ID:      strings.TrimSpace(get(userColumns[0])),
			Name:    get(userColumns[1]),
			Address: get(userColumns[2]),
			Phone:   get(userColumns[3]),
			Email:   get(userColumns[4]),
		})
	}
	return users, nil
}
