package budget

import "github.com/finsense/finsense/pkg/agent"

// Rules are the behavioral instructions given to the budgeting agent.
const Rules = agent.DefaultRules

// DefaultGoals returns the budgeting agent's goals in priority order.
func DefaultGoals() []agent.Goal {
	return []agent.Goal{
		{
			Priority:    1,
			Name:        "Track and analyze monthly spending",
			Description: "Extract transactions from bank statements to create a structured view of spending activity.",
		},
		{
			Priority:    2,
			Name:        "Apply 50/30/20 budgeting rule",
			Description: "Evaluate current month spending against the standard rule of 50% needs, 30% wants, 20% savings.",
		},
		{
			Priority:    3,
			Name:        "Detect over-budget categories",
			Description: "Warn the user if spending exceeds limits in Needs, Wants, or Savings buckets.",
		},
		{
			Priority:    4,
			Name:        "Summarize budget health",
			Description: "Present a clean summary of categorized spending and highlight savings potential.",
		},
		{
			Priority:    5,
			Name:        "Assist in goal-based planning",
			Description: "If user expresses an intent like buying shoes or saving money, help recommend changes to achieve it.",
		},
	}
}
