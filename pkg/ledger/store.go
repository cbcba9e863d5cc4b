package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

var _ Store = (*Ledger)(nil)

// Ledger implements Store over a key-value backend.
type Ledger struct {
	// mu serializes read-modify-write sequences.
	mu  sync.Mutex
	kv  backend
	now func() time.Time
}

// NewMemory returns a ledger held in process memory.
func NewMemory() *Ledger {
	return newLedger(newMemBackend())
}

func newLedger(b backend) *Ledger {
	return &Ledger{kv: b, now: time.Now}
}

// Round2 rounds v to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (l *Ledger) getValue(key string, v any) (bool, error) {
	data, err := l.kv.get(key)
	if errors.Is(err, errNoKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := msgpack.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("ledger: decode %s: %w", key, err)
	}
	return true, nil
}

func (l *Ledger) setValue(key string, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("ledger: encode %s: %w", key, err)
	}
	return l.kv.set(key, data)
}

func (l *Ledger) SetIncome(_ context.Context, user string, amount float64) error {
	if err := checkSegment(user); err != nil {
		return err
	}
	return l.setValue(userKey(user, "income"), Round2(amount))
}

func (l *Ledger) Income(_ context.Context, user string) (float64, error) {
	if err := checkSegment(user); err != nil {
		return 0, err
	}
	var v float64
	_, err := l.getValue(userKey(user, "income"), &v)
	return v, err
}

func (l *Ledger) AddIncomeSource(_ context.Context, user string, src IncomeSource) error {
	if err := checkSegment(user); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := userKey(user, "sources")
	var sources []IncomeSource
	if _, err := l.getValue(key, &sources); err != nil {
		return err
	}
	src.Amount = Round2(src.Amount)
	return l.setValue(key, append(sources, src))
}

func (l *Ledger) IncomeSources(_ context.Context, user string) ([]IncomeSource, error) {
	if err := checkSegment(user); err != nil {
		return nil, err
	}
	var sources []IncomeSource
	_, err := l.getValue(userKey(user, "sources"), &sources)
	return sources, err
}

func (l *Ledger) AddTransactions(_ context.Context, user string, txs []Transaction) (int, error) {
	if err := checkSegment(user); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]int)
	var pairs []kvPair
	for _, tx := range txs {
		month := tx.Month()
		if month == "" {
			return 0, fmt.Errorf("ledger: transaction %q: invalid date %q", tx.Description, tx.Date)
		}
		base := tx.Date + "|" + strings.ToLower(tx.Description) + "|" + strconv.FormatFloat(tx.Amount, 'f', 2, 64)
		n := seen[base]
		seen[base] = n + 1
		tx.ID = fingerprint(base, n)

		key := userKey(user, "tx", month, tx.Date, tx.ID)
		if _, err := l.kv.get(key); err == nil {
			continue
		} else if !errors.Is(err, errNoKey) {
			return 0, err
		}
		data, err := msgpack.Marshal(tx)
		if err != nil {
			return 0, fmt.Errorf("ledger: encode transaction: %w", err)
		}
		pairs = append(pairs, kvPair{key: key, value: data})
	}
	if len(pairs) == 0 {
		return 0, nil
	}
	if err := l.kv.setBatch(pairs); err != nil {
		return 0, err
	}
	return len(pairs), nil
}

func fingerprint(base string, n int) string {
	sum := sha256.Sum256([]byte(base + "|" + strconv.Itoa(n)))
	return hex.EncodeToString(sum[:8])
}

func (l *Ledger) Transactions(_ context.Context, user, month string) ([]Transaction, error) {
	if err := checkSegment(user); err != nil {
		return nil, err
	}
	prefix := userKey(user, "tx") + sep
	if month != "" {
		prefix += month + sep
	}
	var out []Transaction
	for p, err := range l.kv.scan(prefix) {
		if err != nil {
			return nil, err
		}
		var tx Transaction
		if err := msgpack.Unmarshal(p.value, &tx); err != nil {
			return nil, fmt.Errorf("ledger: decode %s: %w", p.key, err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func (l *Ledger) AddKeyword(_ context.Context, user string, group KeywordGroup, word string) (bool, error) {
	if err := checkSegment(user); err != nil {
		return false, err
	}
	if !group.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidKeywordGroup, group)
	}
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return false, errors.New("ledger: empty keyword")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	key := userKey(user, "kw", string(group))
	var words []string
	if _, err := l.getValue(key, &words); err != nil {
		return false, err
	}
	if slices.Contains(words, word) {
		return false, nil
	}
	return true, l.setValue(key, append(words, word))
}

func (l *Ledger) Keywords(_ context.Context, user string) (Keywords, error) {
	if err := checkSegment(user); err != nil {
		return nil, err
	}
	kw := make(Keywords, len(KeywordGroups))
	for _, g := range KeywordGroups {
		var words []string
		if _, err := l.getValue(userKey(user, "kw", string(g)), &words); err != nil {
			return nil, err
		}
		kw[g] = words
	}
	return kw, nil
}

func (l *Ledger) Close() error {
	return l.kv.close()
}
