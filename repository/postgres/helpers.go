package postgres

import (
	"encoding/json"
	"time"
)

const maxAuditPage = 200

func marshalMap(data map[string]string) []byte {
	if len(data) == 0 {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return b
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > maxAuditPage:
		return maxAuditPage
	default:
		return limit
	}
}
