package budget

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	isoMonthRe = regexp.MustCompile(`(\d{4})[-/](\d{2})`)
	isoInRe    = regexp.MustCompile(`(?:\bin\s+)?\d{4}[-/]\d{2}`)
	inWordRe   = regexp.MustCompile(`\bin\b`)
	spaceRe    = regexp.MustCompile(`\s+`)

	titleCaser = cases.Title(language.English)
)

// ExtractMonth resolves a natural language period to a yyyy-mm month and
// returns the rest of text, title-cased, as the category.
//
//	"clothing in March"        → ("Clothing", "<year>-03")
//	"subscriptions last month" → ("Subscriptions", <previous month>)
//	"eating out in 2023-12"    → ("Eating Out", "2023-12")
//
// Month names resolve to the year of now. Text without a recognizable period
// resolves to the month of now.
func ExtractMonth(text string, now time.Time) (category, month string) {
	lowered := strings.ToLower(text)
	switch {
	case strings.Contains(lowered, "last month"):
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		month = first.AddDate(0, 0, -1).Format("2006-01")
		category = strings.ReplaceAll(lowered, "last month", "")
	case strings.Contains(lowered, "this month"):
		month = now.Format("2006-01")
		category = strings.ReplaceAll(lowered, "this month", "")
	default:
		if m, rest, ok := monthName(lowered); ok {
			month = fmt.Sprintf("%d-%02d", now.Year(), m)
			category = inWordRe.ReplaceAllString(rest, "")
		} else if sm := isoMonthRe.FindStringSubmatch(lowered); sm != nil {
			month = sm[1] + "-" + sm[2]
			category = isoInRe.ReplaceAllString(lowered, "")
		} else {
			month = now.Format("2006-01")
			category = text
		}
	}
	category = strings.TrimSpace(spaceRe.ReplaceAllString(category, " "))
	return titleCaser.String(category), month
}

func monthName(lowered string) (time.Month, string, bool) {
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if strings.Contains(lowered, name) {
			return m, strings.ReplaceAll(lowered, name, ""), true
		}
	}
	return 0, "", false
}
