package statement

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/finsense/finsense/pkg/ledger"
)

// lineRe matches "dd.mm.yyyy  description  -1.234,56 €". Amounts use a comma
// as decimal separator and an optional dot as thousands separator.
var lineRe = regexp.MustCompile(`(\d{2}\.\d{2}\.\d{4})\s+(.+?)\s+(-?\d{1,3}(?:\.\d{3})+,\d{2}|-?\d+,\d{2}) €`)

// Parse extracts transactions from statement text. Lines that do not match
// the statement layout, or carry an impossible date, are skipped.
func Parse(r io.Reader) ([]ledger.Transaction, error) {
	var txs []ledger.Transaction
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		tx, ok := ParseLine(sc.Text())
		if ok {
			txs = append(txs, tx)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("statement: read: %w", err)
	}
	return txs, nil
}

// ParseLine parses one statement line.
func ParseLine(line string) (ledger.Transaction, bool) {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return ledger.Transaction{}, false
	}
	date, err := time.Parse("02.01.2006", m[1])
	if err != nil {
		return ledger.Transaction{}, false
	}
	amount, err := parseAmount(m[3])
	if err != nil {
		return ledger.Transaction{}, false
	}
	desc := strings.TrimSpace(m[2])
	if desc == "" {
		return ledger.Transaction{}, false
	}
	return ledger.Transaction{
		Date:        date.Format(time.DateOnly),
		Description: desc,
		Amount:      amount,
	}, true
}

// parseAmount converts "1.234,56" to 1234.56.
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	return strconv.ParseFloat(s, 64)
}
