package ledger_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/finsense/finsense/pkg/ledger"
	"github.com/finsense/finsense/pkg/memory"
)

// eachStore runs fn against the in-memory ledger and an in-memory badger
// ledger.
func eachStore(t *testing.T, fn func(t *testing.T, s ledger.Store)) {
	t.Run("memory", func(t *testing.T) {
		s := ledger.NewMemory()
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
	t.Run("badger", func(t *testing.T) {
		s, err := ledger.NewBadger(ledger.BadgerOptions{InMemory: true})
		if err != nil {
			t.Fatalf("NewBadger: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
}

func TestIncome(t *testing.T) {
	ctx := context.Background()
	eachStore(t, func(t *testing.T, s ledger.Store) {
		got, err := s.Income(ctx, "alice")
		if err != nil || got != 0 {
			t.Fatalf("Income unset = %v, %v", got, err)
		}
		if err := s.SetIncome(ctx, "alice", 3000.456); err != nil {
			t.Fatal(err)
		}
		got, err = s.Income(ctx, "alice")
		if err != nil {
			t.Fatal(err)
		}
		if got != 3000.46 {
			t.Errorf("Income = %v, want 3000.46", got)
		}
		if other, _ := s.Income(ctx, "bob"); other != 0 {
			t.Errorf("income leaked across users: %v", other)
		}
	})
}

func TestIncomeSources(t *testing.T) {
	ctx := context.Background()
	eachStore(t, func(t *testing.T, s ledger.Store) {
		for _, src := range []ledger.IncomeSource{{Source: "Freelance", Amount: 500}, {Source: "Rent", Amount: 250.5}} {
			if err := s.AddIncomeSource(ctx, "alice", src); err != nil {
				t.Fatal(err)
			}
		}
		got, err := s.IncomeSources(ctx, "alice")
		if err != nil {
			t.Fatal(err)
		}
		want := []ledger.IncomeSource{{Source: "Freelance", Amount: 500}, {Source: "Rent", Amount: 250.5}}
		if !slices.Equal(got, want) {
			t.Errorf("IncomeSources = %v, want %v", got, want)
		}
	})
}

func TestTransactions(t *testing.T) {
	ctx := context.Background()
	txs := []ledger.Transaction{
		{Date: "2024-03-15", Description: "REWE Markt", Amount: -45.9},
		{Date: "2024-03-02", Description: "Netflix", Amount: -12.99},
		{Date: "2024-03-02", Description: "Netflix", Amount: -12.99},
		{Date: "2024-04-01", Description: "Salary", Amount: 3000},
	}
	eachStore(t, func(t *testing.T, s ledger.Store) {
		n, err := s.AddTransactions(ctx, "alice", txs)
		if err != nil {
			t.Fatal(err)
		}
		if n != 4 {
			t.Fatalf("added = %d, want 4", n)
		}
		// Re-importing the same lines adds nothing.
		n, err = s.AddTransactions(ctx, "alice", txs)
		if err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Fatalf("re-import added %d", n)
		}

		march, err := s.Transactions(ctx, "alice", "2024-03")
		if err != nil {
			t.Fatal(err)
		}
		if len(march) != 3 {
			t.Fatalf("march = %d transactions, want 3", len(march))
		}
		if march[0].Date != "2024-03-02" || march[2].Description != "REWE Markt" {
			t.Errorf("not ordered by date: %+v", march)
		}
		if march[0].ID == "" || march[0].ID == march[1].ID {
			t.Errorf("IDs not unique: %q %q", march[0].ID, march[1].ID)
		}

		all, err := s.Transactions(ctx, "alice", "")
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 4 {
			t.Errorf("all = %d, want 4", len(all))
		}
	})
}

func TestAddTransactionsInvalidDate(t *testing.T) {
	s := ledger.NewMemory()
	_, err := s.AddTransactions(context.Background(), "alice", []ledger.Transaction{{Date: "15.03", Amount: 1}})
	if err == nil {
		t.Fatal("expected error for invalid date")
	}
}

func TestKeywords(t *testing.T) {
	ctx := context.Background()
	eachStore(t, func(t *testing.T, s ledger.Store) {
		added, err := s.AddKeyword(ctx, "alice", ledger.KeywordWants, "Zalando")
		if err != nil || !added {
			t.Fatalf("AddKeyword = %v, %v", added, err)
		}
		added, err = s.AddKeyword(ctx, "alice", ledger.KeywordWants, "zalando ")
		if err != nil || added {
			t.Fatalf("duplicate AddKeyword = %v, %v", added, err)
		}
		if _, err := s.AddKeyword(ctx, "alice", "luxury", "yacht"); !errors.Is(err, ledger.ErrInvalidKeywordGroup) {
			t.Fatalf("invalid group err = %v", err)
		}
		kw, err := s.Keywords(ctx, "alice")
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(kw[ledger.KeywordWants], []string{"zalando"}) {
			t.Errorf("wants = %v", kw[ledger.KeywordWants])
		}
		if len(kw[ledger.KeywordNeeds]) != 0 {
			t.Errorf("needs = %v", kw[ledger.KeywordNeeds])
		}
	})
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	eachStore(t, func(t *testing.T, s ledger.Store) {
		env, err := memory.EnvironmentJSON(map[string]any{"tool_executed": true})
		if err != nil {
			t.Fatal(err)
		}
		mem := memory.New(memory.UserText("hi"), memory.AssistantText("hello"), env)
		if err := s.SaveSession(ctx, "alice", "march", mem); err != nil {
			t.Fatal(err)
		}

		loaded, err := s.LoadSession(ctx, "alice", "march")
		if err != nil {
			t.Fatal(err)
		}
		if loaded.Len() != 3 {
			t.Fatalf("loaded %d entries", loaded.Len())
		}
		last, _ := loaded.Last()
		if _, ok := last.Content.(memory.JSON); !ok || last.Role != memory.RoleEnvironment {
			t.Errorf("environment entry = %#v", last)
		}

		infos, err := s.ListSessions(ctx, "alice")
		if err != nil {
			t.Fatal(err)
		}
		if len(infos) != 1 || infos[0].Name != "march" || infos[0].Entries != 3 {
			t.Errorf("ListSessions = %+v", infos)
		}

		if err := s.DeleteSession(ctx, "alice", "march"); err != nil {
			t.Fatal(err)
		}
		if _, err := s.LoadSession(ctx, "alice", "march"); !errors.Is(err, ledger.ErrNotFound) {
			t.Fatalf("LoadSession after delete err = %v", err)
		}
	})
}

func TestInvalidKeySegments(t *testing.T) {
	s := ledger.NewMemory()
	ctx := context.Background()
	if err := s.SetIncome(ctx, "a:b", 1); !errors.Is(err, ledger.ErrInvalidKey) {
		t.Errorf("SetIncome err = %v", err)
	}
	if err := s.SaveSession(ctx, "alice", "", memory.New()); !errors.Is(err, ledger.ErrInvalidKey) {
		t.Errorf("SaveSession err = %v", err)
	}
}

func TestNewBadgerRequiresDir(t *testing.T) {
	if _, err := ledger.NewBadger(ledger.BadgerOptions{}); err == nil {
		t.Fatal("expected error without Dir")
	}
}

func TestBadgerPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := ledger.NewBadger(ledger.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetIncome(ctx, "alice", 1200); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = ledger.NewBadger(ledger.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Income(ctx, "alice")
	if err != nil || got != 1200 {
		t.Fatalf("Income after reopen = %v, %v", got, err)
	}
}
