// Package budget provides the personal budgeting tools an agent acts with.
//
// A [Toolkit] binds a ledger, a statement archive and a user. Its
// [Toolkit.Register] method adds every tool to a registry under [Tag]:
//
//	parse_bank_statement      read and parse a statement from the archive
//	categorize_transactions   assign needs/wants/savings/income/other
//	summarize_budget          compare spending with the 50/30/20 rule
//	record_income             store the monthly base salary
//	record_income_source      add a secondary income
//	summarize_income          total salary and secondary income
//	list_transactions         stored transactions for a month
//	query_transactions        run a jq filter over stored transactions
//	terminate                 end the run with a message
package budget
