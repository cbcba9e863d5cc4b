package budget

import (
	"fmt"
	"math"

	"github.com/finsense/finsense/pkg/ledger"
)

// Shares of income per category under the 50/30/20 rule.
const (
	NeedsShare   = 0.50
	WantsShare   = 0.30
	SavingsShare = 0.20
)

// Buckets holds one amount per budget category.
type Buckets struct {
	Needs   float64 `json:"needs" yaml:"needs"`
	Wants   float64 `json:"wants" yaml:"wants"`
	Savings float64 `json:"savings" yaml:"savings"`
}

// Summary compares actual spending with the 50/30/20 limits. OverBudget
// holds only the exceeded categories.
type Summary struct {
	Income         float64            `json:"income" yaml:"income"`
	ActualSpending Buckets            `json:"actual_spending" yaml:"actual_spending"`
	BudgetLimits   Buckets            `json:"budget_limits" yaml:"budget_limits"`
	OverBudget     map[string]float64 `json:"over_budget" yaml:"over_budget"`
}

// Summarize totals the absolute amounts of categorized transactions and
// checks them against limits derived from income. Transactions outside
// needs, wants and savings are ignored.
func Summarize(txs []ledger.Transaction, income float64) Summary {
	var spent Buckets
	for _, tx := range txs {
		amt := math.Abs(tx.Amount)
		switch tx.Category {
		case CategoryNeeds:
			spent.Needs += amt
		case CategoryWants:
			spent.Wants += amt
		case CategorySavings:
			spent.Savings += amt
		}
	}
	spent = Buckets{
		Needs:   ledger.Round2(spent.Needs),
		Wants:   ledger.Round2(spent.Wants),
		Savings: ledger.Round2(spent.Savings),
	}
	limits := Buckets{
		Needs:   ledger.Round2(income * NeedsShare),
		Wants:   ledger.Round2(income * WantsShare),
		Savings: ledger.Round2(income * SavingsShare),
	}
	over := make(map[string]float64)
	check := func(name string, actual, limit float64) {
		if actual > limit {
			over[name] = ledger.Round2(actual - limit)
		}
	}
	check(CategoryNeeds, spent.Needs, limits.Needs)
	check(CategoryWants, spent.Wants, limits.Wants)
	check(CategorySavings, spent.Savings, limits.Savings)

	return Summary{
		Income:         income,
		ActualSpending: spent,
		BudgetLimits:   limits,
		OverBudget:     over,
	}
}

// IncomeSummary is the total of base salary and secondary income.
type IncomeSummary struct {
	TotalIncome float64               `json:"total_income" yaml:"total_income"`
	Sources     []ledger.IncomeSource `json:"sources" yaml:"sources"`
	Message     string                `json:"message" yaml:"message"`
}

// SummarizeIncome lists the salary (when positive) followed by sources.
func SummarizeIncome(salary float64, sources []ledger.IncomeSource) IncomeSummary {
	all := make([]ledger.IncomeSource, 0, len(sources)+1)
	if salary > 0 {
		all = append(all, ledger.IncomeSource{Source: "salary", Amount: salary})
	}
	all = append(all, sources...)
	var total float64
	for _, s := range all {
		total += s.Amount
	}
	total = ledger.Round2(total)
	return IncomeSummary{
		TotalIncome: total,
		Sources:     all,
		Message:     fmt.Sprintf("Total income: €%.2f", total),
	}
}
