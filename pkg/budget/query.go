package budget

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/finsense/finsense/pkg/ledger"
)

// Query runs a jq filter over txs (an array of transaction objects) and
// collects every emitted value.
func Query(ctx context.Context, filter string, txs []ledger.Transaction) ([]any, error) {
	q, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("budget: invalid jq filter %q: %w", filter, err)
	}
	input, err := toGeneric(txs)
	if err != nil {
		return nil, err
	}
	out := []any{}
	iter := q.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			if err, ok := err.(*gojq.HaltError); ok && err.Value() == nil {
				break
			}
			return nil, fmt.Errorf("budget: jq: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}

// toGeneric converts txs to the []any/map[string]any form gojq operates on.
func toGeneric(txs []ledger.Transaction) (any, error) {
	if txs == nil {
		txs = []ledger.Transaction{}
	}
	b, err := json.Marshal(txs)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}
