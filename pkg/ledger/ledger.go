// Package ledger persists a user's budgeting data: income, income sources,
// transactions, categorization keywords and saved chat sessions.
//
// Data lives in a key-value backend. Keys are ':'-joined paths rooted at the
// user ID, for example "u:alice:tx:2024-03:2024-03-15:<id>", and values are
// msgpack-encoded. [NewBadger] opens a BadgerDB-backed ledger; [NewMemory]
// returns one held in process memory.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finsense/finsense/pkg/memory"
)

var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("ledger: not found")

	// ErrInvalidKeywordGroup is returned for a keyword group outside the
	// known set.
	ErrInvalidKeywordGroup = errors.New("ledger: invalid keyword group")

	// ErrInvalidKey is returned when a user ID or name contains the key
	// separator or is empty.
	ErrInvalidKey = errors.New("ledger: invalid key segment")
)

// Transaction is one bank statement line.
type Transaction struct {
	ID          string  `json:"id,omitempty" yaml:"id,omitempty" msgpack:"id"`
	Date        string  `json:"date" yaml:"date" msgpack:"date"` // yyyy-mm-dd
	Description string  `json:"description" yaml:"description" msgpack:"desc"`
	Amount      float64 `json:"amount" yaml:"amount" msgpack:"amount"`
	Category    string  `json:"category,omitempty" yaml:"category,omitempty" msgpack:"category,omitempty"`
	Statement   string  `json:"statement,omitempty" yaml:"statement,omitempty" msgpack:"statement,omitempty"`
}

// Month returns the yyyy-mm part of Date, or "" when Date is malformed.
func (t Transaction) Month() string {
	if len(t.Date) < 7 {
		return ""
	}
	return t.Date[:7]
}

// IncomeSource is a named secondary income.
type IncomeSource struct {
	Source string  `json:"source" yaml:"source" msgpack:"source"`
	Amount float64 `json:"amount" yaml:"amount" msgpack:"amount"`
}

// KeywordGroup names a user keyword list used by the categorizer.
type KeywordGroup string

const (
	KeywordExpense KeywordGroup = "expense"
	KeywordIncome  KeywordGroup = "income"
	KeywordNeeds   KeywordGroup = "needs"
	KeywordWants   KeywordGroup = "wants"
)

// KeywordGroups lists the valid groups.
var KeywordGroups = []KeywordGroup{KeywordExpense, KeywordIncome, KeywordNeeds, KeywordWants}

// Valid reports whether g is a known group.
func (g KeywordGroup) Valid() bool {
	switch g {
	case KeywordExpense, KeywordIncome, KeywordNeeds, KeywordWants:
		return true
	}
	return false
}

// Keywords maps each group to its lowercase words in insertion order.
type Keywords map[KeywordGroup][]string

// SessionInfo describes a saved session.
type SessionInfo struct {
	Name      string    `json:"name" yaml:"name"`
	Entries   int       `json:"entries" yaml:"entries"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Store is the persistence interface used by the budgeting tools and CLI.
type Store interface {
	// SetIncome stores the monthly salary.
	SetIncome(ctx context.Context, user string, amount float64) error

	// Income returns the stored salary, zero when unset.
	Income(ctx context.Context, user string) (float64, error)

	AddIncomeSource(ctx context.Context, user string, src IncomeSource) error
	IncomeSources(ctx context.Context, user string) ([]IncomeSource, error)

	// AddTransactions stores txs and returns how many were new. A
	// transaction already stored (same date, description, amount and
	// position among identical lines) is not stored twice.
	AddTransactions(ctx context.Context, user string, txs []Transaction) (int, error)

	// Transactions returns stored transactions of month (yyyy-mm) ordered by
	// date, or all transactions when month is empty.
	Transactions(ctx context.Context, user, month string) ([]Transaction, error)

	// AddKeyword adds word to group. It reports false when the word is
	// already present, compared case-insensitively.
	AddKeyword(ctx context.Context, user string, group KeywordGroup, word string) (bool, error)
	Keywords(ctx context.Context, user string) (Keywords, error)

	SaveSession(ctx context.Context, user, name string, mem *memory.Memory) error
	LoadSession(ctx context.Context, user, name string) (*memory.Memory, error)
	ListSessions(ctx context.Context, user string) ([]SessionInfo, error)
	DeleteSession(ctx context.Context, user, name string) error

	Close() error
}

const sep = ":"

func checkSegment(s string) error {
	if s == "" || strings.Contains(s, sep) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return nil
}

func userKey(user string, parts ...string) string {
	return strings.Join(append([]string{"u", user}, parts...), sep)
}
