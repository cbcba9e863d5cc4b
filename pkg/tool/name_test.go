package tool

import "testing"

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"add":               "add",
		"recordIncome":      "record_income",
		"parseBankPDF":      "parse_bank_pdf",
		"HTTPServer":        "http_server",
		"summarize2Budgets": "summarize2_budgets",
		"record_income":     "record_income",
	}
	for in, want := range tests {
		if got := snakeCase(in); got != want {
			t.Errorf("snakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsAnonymous(t *testing.T) {
	for _, name := range []string{"func1", "func12", "2"} {
		if !isAnonymous(name) {
			t.Errorf("isAnonymous(%q) = false", name)
		}
	}
	for _, name := range []string{"add", "funcName", "function"} {
		if isAnonymous(name) {
			t.Errorf("isAnonymous(%q) = true", name)
		}
	}
}

func TestUnmarshalJSONRepairs(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}
	if err := unmarshalJSON([]byte(`{"a": 1,}`), &v); err != nil {
		t.Fatalf("unmarshalJSON: %v", err)
	}
	if v.A != 1 {
		t.Fatalf("a = %d", v.A)
	}
}
