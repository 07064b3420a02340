package errors

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// DataQualityError reports a value in the input that cannot be interpreted.
// Row is the zero-based position in the source table; -1 when unknown.
type DataQualityError struct {
	Table    string
	Row      int
	RecordID string
	Field    string
	Value    string
	Message  string
	cause    error
}

func NewDataQualityError(msg string) *DataQualityError {
	return &DataQualityError{
		Message: msg,
		Row:     -1,
	}
}

// NewDataQualityErrorf creates a new DataQualityError with a formatted message.
// A %w argument is kept as the cause.
func NewDataQualityErrorf(format string, args ...any) *DataQualityError {
	err := fmt.Errorf(format, args...)
	return &DataQualityError{
		Message: err.Error(),
		Row:     -1,
		cause:   unwrapOnce(err),
	}
}

func WrapDataQualityError(e error) *DataQualityError {
	if e == nil {
		return nil
	}

	if dqErr, ok := e.(*DataQualityError); ok {
		return dqErr
	}

	return &DataQualityError{
		Message: e.Error(),
		Row:     -1,
		cause:   e,
	}
}

func (e *DataQualityError) Error() string {
	path := []string{}
	if e.Table != "" {
		path = append(path, fmt.Sprintf("table '%s'", e.Table))
	}
	if e.Row >= 0 {
		path = append(path, fmt.Sprintf("row %d", e.Row))
	}
	if e.RecordID != "" {
		path = append(path, fmt.Sprintf("id '%s'", e.RecordID))
	}
	if e.Field != "" {
		path = append(path, fmt.Sprintf("field '%s'", e.Field))
	}

	if len(path) == 0 {
		return e.Message
	}

	return strings.Join(path, " -> ") + ": " + e.Message
}

func (e *DataQualityError) Unwrap() error {
	return e.cause
}

func (e *DataQualityError) AddTable(table string) *DataQualityError {
	e.Table = table
	return e
}

func (e *DataQualityError) AddRow(row int) *DataQualityError {
	e.Row = row
	return e
}

func (e *DataQualityError) AddRecordID(id string) *DataQualityError {
	e.RecordID = id
	return e
}

func (e *DataQualityError) AddField(field string) *DataQualityError {
	e.Field = field
	return e
}

func (e *DataQualityError) AddValue(value string) *DataQualityError {
	e.Value = value
	return e
}

func (e *DataQualityError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusUnprocessableEntity, e.Error()).
		AddMetaValue("table", e.Table).
		AddMetaValue("row", strconv.Itoa(e.Row)).
		AddMetaValue("record_id", e.RecordID).
		AddMetaValue("field", e.Field).
		AddMetaValue("value", e.Value)
}

func IsDataQualityError(err error) bool {
	_, ok := AsDataQualityError(err)
	return ok
}

// AsDataQualityError finds the first DataQualityError in the chain
func AsDataQualityError(err error) (*DataQualityError, bool) {
	for err != nil {
		if dqErr, ok := err.(*DataQualityError); ok {
			return dqErr, true
		}
		err = unwrapOnce(err)
	}
	return nil, false
}

func unwrapOnce(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}
