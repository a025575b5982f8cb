package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

const DefaultQueryTimeout = 30 * time.Second

// withTimeout wraps a context with a default query timeout if not already set
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultQueryTimeout)
}

// intPtrToNull converts an optional override to a nullable column value.
// nil becomes SQL NULL so COALESCE fallback chains apply.
func intPtrToNull(ptr *int) sql.NullInt32 {
	if ptr == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*ptr), Valid: true}
}

// marshalIntSlice encodes a viewport width list as JSONB.
// Empty and nil slices become SQL NULL, not the JSON literal null.
func marshalIntSlice(values []int) ([]byte, error) {
	if len(values) == 0 {
		return nil, nil
	}
	return json.Marshal(values)
}

// marshalStringSlice encodes a viewport tag list as JSONB, NULL when empty.
func marshalStringSlice(values []string) ([]byte, error) {
	if len(values) == 0 {
		return nil, nil
	}
	return json.Marshal(values)
}

// unmarshalJSONSlice decodes a JSONB column into a slice of type T.
// NULL columns yield a nil slice.
func unmarshalJSONSlice[T any](data []byte) ([]T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var result []T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}
