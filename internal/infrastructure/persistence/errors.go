package persistence

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/shopcore/internal/domain/shared"
	"gorm.io/gorm"
)

// ErrConcurrentUpdate is returned when an optimistic update matched no row
// because another writer changed the version first.
var ErrConcurrentUpdate = errors.New("row was modified concurrently")

// storageError wraps err as a retryable storage failure. Domain errors pass through.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return shared.NewStorageError(op, err)
}

// notFoundOr maps gorm.ErrRecordNotFound to notFound and anything else to a storage error
func notFoundOr(op string, err error, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return storageError(op, err)
}

// isDuplicateKey reports a unique constraint violation. TranslateError turns
// most of them into gorm.ErrDuplicatedKey; the string match covers drivers
// and plain connections opened without it.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

// aggTime scans the result of MIN/MAX over a timestamp column. Postgres hands
// back a time.Time; sqlite loses the column type in aggregates and returns text.
type aggTime struct {
	Time  time.Time
	Valid bool
}

var aggTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
}

// Scan implements sql.Scanner
func (t *aggTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	}
	return fmt.Errorf("cannot scan %T into a timestamp", value)
}

func (t *aggTime) parse(s string) error {
	for _, layout := range aggTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}

// Value implements driver.Valuer
func (t aggTime) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return t.Time, nil
}

// Ptr returns nil for a NULL aggregate
func (t aggTime) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
