package budget

import (
	"encoding/json"
	"testing"

	"github.com/finsense/finsense/pkg/environment"
	"github.com/finsense/finsense/pkg/ledger"
	"github.com/finsense/finsense/pkg/memory"
)

func TestCategorizer(t *testing.T) {
	c := Categorizer{Keywords: ledger.Keywords{
		ledger.KeywordNeeds:   {"gym"},
		ledger.KeywordWants:   {"zalando"},
		ledger.KeywordIncome:  {"acme"},
		ledger.KeywordExpense: {"amazon"},
	}}
	tests := []struct {
		desc   string
		amount float64
		want   string
	}{
		{"REWE Markt Berlin", -54.23, CategoryNeeds},
		{"Home Internet", -39.99, CategoryNeeds},
		{"McFit Gym", -24.9, CategoryNeeds},
		{"Netflix Abo", -12.99, CategoryWants},
		{"ZALANDO SE", -80, CategoryWants},
		{"Gehalt ACME GmbH", 3250, CategoryIncome},
		{"Amazon Erstattung", 20, CategoryOther},
		{"Transfer from savings", 100, CategorySavings},
		{"Bakery", -3.5, CategoryOther},
	}
	for _, tt := range tests {
		got := c.Category(ledger.Transaction{Description: tt.desc, Amount: tt.amount})
		if got != tt.want {
			t.Errorf("Category(%q, %v) = %s, want %s", tt.desc, tt.amount, got, tt.want)
		}
	}
}

func TestTransactionsArgUnmarshal(t *testing.T) {
	tests := []struct {
		in    string
		n     int
		query string
	}{
		{`[{"date":"2024-03-01","description":"REWE","amount":-5}]`, 1, ""},
		{`{"description":"REWE","amount":-5}`, 1, ""},
		{`"[{\"description\":\"Netflix\",\"amount\":-12.99}]"`, 1, ""},
		{`"the wifi bill"`, 0, "the wifi bill"},
	}
	for _, tt := range tests {
		var a TransactionsArg
		if err := json.Unmarshal([]byte(tt.in), &a); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if len(a.List) != tt.n || a.Query != tt.query {
			t.Errorf("Unmarshal(%s) = %+v", tt.in, a)
		}
	}
	var a TransactionsArg
	if err := json.Unmarshal([]byte(`42`), &a); err == nil {
		t.Error("Unmarshal(42) succeeded")
	}
}

func envEntry(t *testing.T, v any) memory.Entry {
	t.Helper()
	e, err := memory.EnvironmentJSON(environment.Result{ToolExecuted: true, Result: v, Timestamp: "2024-03-15T10:30:00"})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestFuzzyMatch(t *testing.T) {
	older := []ledger.Transaction{
		{Date: "2024-03-01", Description: "Vodafone WiFi", Amount: -39.99},
		{Date: "2024-03-02", Description: "REWE", Amount: -54.23},
	}
	newer := map[string]any{"transaction": ledger.Transaction{Date: "2024-03-09", Description: "Spotify", Amount: -9.99}}
	mem := memory.New(
		memory.UserText("wifi"),
		envEntry(t, older),
		memory.AssistantText("ok"),
		envEntry(t, newer),
	)

	got := FuzzyMatch(mem, "WiFi")
	if len(got) != 1 || got[0].Description != "Vodafone WiFi" {
		t.Fatalf("FuzzyMatch(wifi) = %+v", got)
	}
	got = FuzzyMatch(mem, "the one for 54.23 euros")
	if len(got) != 1 || got[0].Description != "REWE" {
		t.Fatalf("FuzzyMatch(amount) = %+v", got)
	}
	got = FuzzyMatch(mem, "spotify")
	if len(got) != 1 || got[0].Amount != -9.99 {
		t.Fatalf("FuzzyMatch(spotify) = %+v", got)
	}
	if got := FuzzyMatch(mem, "1154.23"); got != nil {
		t.Fatalf("FuzzyMatch matched inside a larger number: %+v", got)
	}
	if got := FuzzyMatch(mem, "unknown"); got != nil {
		t.Fatalf("FuzzyMatch(unknown) = %+v", got)
	}
	if got := FuzzyMatch(nil, "wifi"); got != nil {
		t.Fatalf("FuzzyMatch(nil) = %+v", got)
	}
}
