package budget

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/finsense/finsense/pkg/ledger"
	"github.com/finsense/finsense/pkg/memory"
)

// Categories assigned by [Categorizer].
const (
	CategoryNeeds   = "needs"
	CategoryWants   = "wants"
	CategorySavings = "savings"
	CategoryIncome  = "income"
	CategoryOther   = "other"
)

var (
	defaultNeeds = []string{"rewe", "edeka", "aldi", "dm", "apotheke", "emi", "loan", "rent", "wifi", "internet"}
	defaultWants = []string{"netflix", "spotify", "starbucks", "eating", "uber"}
)

// ErrNoMatch is returned when a transaction query matches nothing in memory.
var ErrNoMatch = errors.New("budget: no matching transaction found in memory")

// Categorizer assigns categories by lowercase substring rules. User keywords
// extend the built-in needs and wants lists and drive income detection.
type Categorizer struct {
	Keywords ledger.Keywords
}

// Category returns the category of tx.
func (c Categorizer) Category(tx ledger.Transaction) string {
	desc := strings.ToLower(tx.Description)
	switch {
	case containsAny(desc, defaultNeeds) || containsAny(desc, c.Keywords[ledger.KeywordNeeds]):
		return CategoryNeeds
	case containsAny(desc, defaultWants) || containsAny(desc, c.Keywords[ledger.KeywordWants]):
		return CategoryWants
	case tx.Amount > 0 && containsAny(desc, c.Keywords[ledger.KeywordIncome]):
		return CategoryIncome
	case tx.Amount > 0 && containsAny(desc, c.Keywords[ledger.KeywordExpense]):
		// refund of an expense
		return CategoryOther
	case tx.Amount > 0:
		return CategorySavings
	}
	return CategoryOther
}

// Apply returns a copy of txs with Category set.
func (c Categorizer) Apply(txs []ledger.Transaction) []ledger.Transaction {
	out := slices.Clone(txs)
	for i := range out {
		out[i].Category = c.Category(out[i])
	}
	return out
}

func containsAny(s string, words []string) bool {
	return slices.ContainsFunc(words, func(w string) bool {
		return w != "" && strings.Contains(s, w)
	})
}

// TransactionsArg is a tool argument holding either transactions or a free
// text query for a transaction seen earlier in the run.
//
// It decodes from an array of transactions, a single transaction object, a
// string containing either of those as JSON, or any other string (a query).
type TransactionsArg struct {
	List  []ledger.Transaction
	Query string
}

func (a *TransactionsArg) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if list, ok := decodeTransactions([]byte(s)); ok {
			a.List = list
			return nil
		}
		a.Query = s
		return nil
	}
	list, ok := decodeTransactions(data)
	if !ok {
		return fmt.Errorf("budget: transactions must be an array, an object or a string")
	}
	a.List = list
	return nil
}

func decodeTransactions(data []byte) ([]ledger.Transaction, bool) {
	var list []ledger.Transaction
	if err := json.Unmarshal(data, &list); err == nil {
		return list, true
	}
	var one ledger.Transaction
	if err := json.Unmarshal(data, &one); err == nil && one.Description != "" {
		return []ledger.Transaction{one}, true
	}
	return nil, false
}

// FuzzyMatch searches the environment entries of mem, newest first, for
// transactions whose description contains query or whose amount appears in
// query as a separate token. It returns the matches of the newest entry that
// has any.
func FuzzyMatch(mem *memory.Memory, query string) []ledger.Transaction {
	if mem == nil {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	entries := mem.All()
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Role != memory.RoleEnvironment {
			continue
		}
		var matched []ledger.Transaction
		for _, tx := range transactionsIn(e.Content) {
			if matchTransaction(tx, q) {
				matched = append(matched, tx)
			}
		}
		if len(matched) > 0 {
			return matched
		}
	}
	return nil
}

func matchTransaction(tx ledger.Transaction, q string) bool {
	desc := strings.ToLower(tx.Description)
	if desc != "" && strings.Contains(desc, q) {
		return true
	}
	amt := regexp.QuoteMeta(strconv.FormatFloat(math.Abs(tx.Amount), 'f', -1, 64))
	ok, _ := regexp.MatchString(`(^|[^\d.])`+amt+`($|[^\d])`, q)
	return ok
}

// transactionsIn extracts transactions from an environment payload. It looks
// at the payload itself and at its result field for a transaction object, a
// transactions array or a bare array.
func transactionsIn(c memory.Content) []ledger.Transaction {
	j, ok := c.(memory.JSON)
	if !ok {
		return nil
	}
	var doc any
	if err := j.Decode(&doc); err != nil {
		return nil
	}
	var out []ledger.Transaction
	collect := func(v any) {
		switch v := v.(type) {
		case map[string]any:
			if tx, ok := asTransaction(v["transaction"]); ok {
				out = append(out, tx)
			}
			if arr, ok := v["transactions"].([]any); ok {
				out = append(out, asTransactions(arr)...)
			}
		case []any:
			out = append(out, asTransactions(v)...)
		}
	}
	collect(doc)
	if m, ok := doc.(map[string]any); ok {
		collect(m["result"])
	}
	return out
}

func asTransactions(arr []any) []ledger.Transaction {
	var out []ledger.Transaction
	for _, v := range arr {
		if tx, ok := asTransaction(v); ok {
			out = append(out, tx)
		}
	}
	return out
}

func asTransaction(v any) (ledger.Transaction, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return ledger.Transaction{}, false
	}
	if _, ok := m["description"]; !ok {
		return ledger.Transaction{}, false
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ledger.Transaction{}, false
	}
	var tx ledger.Transaction
	if err := json.Unmarshal(b, &tx); err != nil {
		return ledger.Transaction{}, false
	}
	return tx, true
}
