package postgres

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// UUIDArray adapts a slice of typed ids for a UUID[] parameter.
func UUIDArray[T ~[16]byte](ids []T) driver.Valuer {
	raw := make([]string, len(ids))
	for i, v := range ids {
		raw[i] = uuid.UUID(v).String()
	}
	return pq.StringArray(raw)
}

// ParseUUIDs converts a scanned UUID[] back into typed ids.
func ParseUUIDs[T ~[16]byte](raw []string) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]T, 0, len(raw))
	for _, s := range raw {
		u, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse uuid array element %q: %w", s, err)
		}
		out = append(out, T(u))
	}
	return out, nil
}
