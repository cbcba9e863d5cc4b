package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/finsense/finsense/pkg/agent"
	"github.com/finsense/finsense/pkg/ledger"
	"github.com/finsense/finsense/pkg/statement"
	"github.com/finsense/finsense/pkg/tool"
)

// Tag is the capability tag of every budgeting tool.
const Tag = "budgeting"

// ErrNoArchive is returned by parse_bank_statement when the toolkit has no
// statement archive.
var ErrNoArchive = errors.New("budget: no statement archive configured")

// Toolkit binds the budgeting tools to one user's data.
type Toolkit struct {
	Store   ledger.Store
	Archive statement.Archive
	UserID  string

	// Now returns the current time. Nil means time.Now.
	Now func() time.Time

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

func (k *Toolkit) now() time.Time {
	if k.Now != nil {
		return k.Now()
	}
	return time.Now()
}

func (k *Toolkit) logger() *slog.Logger {
	if k.Logger != nil {
		return k.Logger
	}
	return slog.Default()
}

// transactionsSchema accepts transactions as an array of objects or as a
// string (JSON text or a description of an earlier transaction).
var transactionsSchema = &jsonschema.Schema{
	Types: []string{"array", "string"},
	Items: &jsonschema.Schema{Type: "object"},
}

// Register adds the budgeting tools and terminate to reg, all tagged [Tag].
func (k *Toolkit) Register(reg *tool.Registry) error {
	regs := []func() (*tool.Tool, error){
		func() (*tool.Tool, error) {
			return tool.Register(reg, k.parseBankStatement,
				tool.WithName("parse_bank_statement"),
				tool.WithDescription("Parses a bank statement and extracts transactions with date, description and amount. Set save to store them in the ledger."),
				tool.WithTags(Tag))
		},
		func() (*tool.Tool, error) {
			return tool.Register(reg, k.categorizeTransactions,
				tool.WithName("categorize_transactions"),
				tool.WithDescription("Categorizes transactions into needs, wants, savings, income or other. Accepts a transaction list or a short description of a transaction seen earlier."),
				tool.WithTypeSchema[TransactionsArg](transactionsSchema),
				tool.WithTags(Tag))
		},
		func() (*tool.Tool, error) {
			return tool.Register(reg, k.summarizeBudget,
				tool.WithName("summarize_budget"),
				tool.WithDescription("Compares categorized spending with the 50/30/20 rule. Income defaults to the recorded total income."),
				tool.WithTags(Tag))
		},
		func() (*tool.Tool, error) {
			return tool.Register(reg, k.recordIncome,
				tool.WithName("record_income"),
				tool.WithDescription("Records the user's monthly base income."),
				tool.WithTags(Tag))
		},
		func() (*tool.Tool, error) {
			return tool.Register(reg, k.recordIncomeSource,
				tool.WithName("record_income_source"),
				tool.WithDescription("Adds a secondary income source such as freelance or rental income."),
				tool.WithTags(Tag))
		},
		func() (*tool.Tool, error) {
			return tool.Register(reg, k.summarizeIncome,
				tool.WithName("summarize_income"),
				tool.WithDescription("Combines the base income and all income sources into a total."),
				tool.WithTags(Tag))
		},
		func() (*tool.Tool, error) {
			return tool.Register(reg, k.listTransactions,
				tool.WithName("list_transactions"),
				tool.WithDescription("Lists stored transactions for a period such as 'this month', 'last month', 'March' or '2024-03', optionally filtered by category."),
				tool.WithTags(Tag))
		},
		func() (*tool.Tool, error) {
			return tool.Register(reg, k.queryTransactions,
				tool.WithName("query_transactions"),
				tool.WithDescription("Runs a jq filter over the stored transactions array, for example 'map(select(.amount < -100))'."),
				tool.WithTags(Tag))
		},
		func() (*tool.Tool, error) {
			return agent.RegisterTerminate(reg, Tag)
		},
	}
	for _, r := range regs {
		if _, err := r(); err != nil {
			return err
		}
	}
	return nil
}

type parseArgs struct {
	Path string `json:"path" jsonschema:"Name of the statement in the archive"`
	Save bool   `json:"save" default:"false" jsonschema:"Store the parsed transactions in the ledger"`
}

func (k *Toolkit) parseBankStatement(ctx context.Context, _ *tool.Call, args parseArgs) (any, error) {
	if k.Archive == nil {
		return nil, ErrNoArchive
	}
	rc, err := k.Archive.Open(ctx, args.Path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	txs, err := statement.Parse(rc)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		txs[i].Statement = args.Path
	}
	if args.Save {
		n, err := k.Store.AddTransactions(ctx, k.UserID, txs)
		if err != nil {
			return nil, fmt.Errorf("budget: save transactions: %w", err)
		}
		k.logger().Info("budget: saved transactions", "statement", args.Path, "parsed", len(txs), "new", n)
	}
	if txs == nil {
		txs = []ledger.Transaction{}
	}
	return txs, nil
}

type categorizeArgs struct {
	Transactions TransactionsArg `json:"transactions" jsonschema:"Transactions to categorize, or a description of one"`
}

func (k *Toolkit) categorizeTransactions(ctx context.Context, call *tool.Call, args categorizeArgs) (any, error) {
	txs := args.Transactions.List
	if args.Transactions.Query != "" {
		txs = FuzzyMatch(call.Memory, args.Transactions.Query)
		if len(txs) == 0 {
			return nil, ErrNoMatch
		}
	}
	c, err := k.categorizer(ctx)
	if err != nil {
		return nil, err
	}
	out := c.Apply(txs)
	if out == nil {
		out = []ledger.Transaction{}
	}
	return out, nil
}

func (k *Toolkit) categorizer(ctx context.Context) (Categorizer, error) {
	kw, err := k.Store.Keywords(ctx, k.UserID)
	if err != nil {
		return Categorizer{}, fmt.Errorf("budget: load keywords: %w", err)
	}
	return Categorizer{Keywords: kw}, nil
}

type summarizeArgs struct {
	Transactions []ledger.Transaction `json:"transactions" jsonschema:"Categorized transactions"`
	Income       *float64             `json:"income,omitempty" jsonschema:"Monthly income; omit to use the recorded income"`
}

func (k *Toolkit) summarizeBudget(ctx context.Context, _ *tool.Call, args summarizeArgs) (any, error) {
	var income float64
	if args.Income != nil {
		income = *args.Income
	} else {
		s, err := k.incomeSummary(ctx)
		if err != nil {
			return nil, err
		}
		income = s.TotalIncome
	}
	return Summarize(args.Transactions, income), nil
}

type incomeArgs struct {
	Amount float64 `json:"amount" jsonschema:"Monthly income in euros"`
}

func (k *Toolkit) recordIncome(ctx context.Context, _ *tool.Call, args incomeArgs) (any, error) {
	if err := k.Store.SetIncome(ctx, k.UserID, args.Amount); err != nil {
		return nil, fmt.Errorf("budget: record income: %w", err)
	}
	return fmt.Sprintf("Income of €%.2f recorded successfully.", args.Amount), nil
}

type incomeSourceArgs struct {
	SourceName string  `json:"source_name" jsonschema:"Name of the income source, e.g. freelance or rental"`
	Amount     float64 `json:"amount" jsonschema:"Amount received from this source"`
}

func (k *Toolkit) recordIncomeSource(ctx context.Context, _ *tool.Call, args incomeSourceArgs) (any, error) {
	name := strings.TrimSpace(args.SourceName)
	if name == "" {
		return nil, errors.New("budget: source_name is empty")
	}
	err := k.Store.AddIncomeSource(ctx, k.UserID, ledger.IncomeSource{Source: name, Amount: args.Amount})
	if err != nil {
		return nil, fmt.Errorf("budget: record income source: %w", err)
	}
	return fmt.Sprintf("Income source '%s' of €%.2f recorded successfully.", name, args.Amount), nil
}

type noArgs struct{}

func (k *Toolkit) summarizeIncome(ctx context.Context, _ *tool.Call, _ noArgs) (any, error) {
	return k.incomeSummary(ctx)
}

func (k *Toolkit) incomeSummary(ctx context.Context) (IncomeSummary, error) {
	salary, err := k.Store.Income(ctx, k.UserID)
	if err != nil {
		return IncomeSummary{}, fmt.Errorf("budget: load income: %w", err)
	}
	sources, err := k.Store.IncomeSources(ctx, k.UserID)
	if err != nil {
		return IncomeSummary{}, fmt.Errorf("budget: load income sources: %w", err)
	}
	return SummarizeIncome(salary, sources), nil
}

type listArgs struct {
	Period   string `json:"period" default:"this month" jsonschema:"Period such as 'this month', 'last month', 'March' or '2024-03'"`
	Category string `json:"category" default:"" jsonschema:"Only transactions of this category (needs, wants, savings, income, other)"`
}

func (k *Toolkit) listTransactions(ctx context.Context, _ *tool.Call, args listArgs) (any, error) {
	rest, month := ExtractMonth(args.Period, k.now())
	category := strings.ToLower(strings.TrimSpace(args.Category))
	if category == "" {
		category = strings.ToLower(rest)
	}
	txs, err := k.Store.Transactions(ctx, k.UserID, month)
	if err != nil {
		return nil, fmt.Errorf("budget: list transactions: %w", err)
	}
	c, err := k.categorizer(ctx)
	if err != nil {
		return nil, err
	}
	out := []ledger.Transaction{}
	for _, tx := range txs {
		if tx.Category == "" {
			tx.Category = c.Category(tx)
		}
		if category == "" || strings.EqualFold(tx.Category, category) {
			out = append(out, tx)
		}
	}
	return out, nil
}

type queryArgs struct {
	Filter string `json:"filter" jsonschema:"jq filter applied to the transactions array"`
	Period string `json:"period" default:"" jsonschema:"Restrict to a period such as 'this month' or '2024-03'; empty means all"`
}

func (k *Toolkit) queryTransactions(ctx context.Context, _ *tool.Call, args queryArgs) (any, error) {
	month := ""
	if strings.TrimSpace(args.Period) != "" {
		_, month = ExtractMonth(args.Period, k.now())
	}
	txs, err := k.Store.Transactions(ctx, k.UserID, month)
	if err != nil {
		return nil, fmt.Errorf("budget: query transactions: %w", err)
	}
	return Query(ctx, args.Filter, txs)
}
