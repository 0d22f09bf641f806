package thumbnail

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRecords 表示调用方传入了空列表。
	ErrNoRecords = errors.New("no records to fetch")
	// ErrDuplicateID 表示列表中存在重复 id，调用方应先去重。
	ErrDuplicateID = errors.New("duplicate record id")
)

// StatusError reports a non-2xx thumbnail response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("thumbnail %s: unexpected status %d", e.URL, e.StatusCode)
}

// RecordError ties a failure to the record it belongs to.
type RecordError struct {
	ID  string
	Err error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("asset %s: %v", e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
