package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/finsense/finsense/cmd/finsense/internal/config"
	"github.com/finsense/finsense/pkg/genx"
)

// setupTestEnv points the CLI at an empty config directory with one
// current context "test" for user alice.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.AddContext("test", config.DefaultProfile("alice")); err != nil {
		t.Fatal(err)
	}
	if err := cfg.UseContext("test"); err != nil {
		t.Fatal(err)
	}
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	globalConfig, configLoadErr = nil, nil

	var outBuf, errBuf bytes.Buffer
	rootCmd.SetOut(&outBuf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		stderr += err.Error()
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// scriptedGenerator replies with the given responses in order, then
// terminates.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []string
}

func (g *scriptedGenerator) Generate(context.Context, *genx.Prompt) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.replies) == 0 {
		return `{"tool":"terminate","args":{"message":"done"}}`, nil
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r, nil
}

func useGenerator(t *testing.T, replies ...string) {
	t.Helper()
	testGenerator = &scriptedGenerator{replies: replies}
	t.Cleanup(func() { testGenerator = nil })
}

func TestVersion(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := execute(t, "", "version")
	if code != 0 || !strings.Contains(stdout, "finsense") {
		t.Fatalf("exit %d, stdout: %s", code, stdout)
	}
	stdout, _, code = execute(t, "", "version", "-o", "json")
	if code != 0 || !strings.Contains(stdout, `"version"`) {
		t.Fatalf("exit %d, stdout: %s", code, stdout)
	}
}

func TestInvalidOutputFormat(t *testing.T) {
	setupTestEnv(t)
	if _, stderr, code := execute(t, "", "version", "-o", "xml"); code == 0 || !strings.Contains(stderr, "unsupported") {
		t.Fatalf("exit %d, stderr: %s", code, stderr)
	}
}

func TestConfigContexts(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := execute(t, "", "config", "add-context", "family", "--user", "bob", "--model", "gpt-4o-mini")
	if code != 0 || !strings.Contains(stdout, "created") {
		t.Fatalf("exit %d, stdout: %s", code, stdout)
	}
	_, stderr, code := execute(t, "", "config", "add-context", "family")
	if code == 0 || !strings.Contains(stderr, "already exists") {
		t.Fatalf("duplicate: exit %d, stderr: %s", code, stderr)
	}

	stdout, _, _ = execute(t, "", "config", "list-contexts")
	if !strings.Contains(stdout, "family") || !strings.Contains(stdout, "bob") || !strings.Contains(stdout, "* ") {
		t.Fatalf("list-contexts: %s", stdout)
	}

	execute(t, "", "config", "use-context", "family")
	stdout, _, _ = execute(t, "", "config", "current-context")
	if strings.TrimSpace(stdout) != "family" {
		t.Fatalf("current-context = %q", stdout)
	}
	stdout, _, code = execute(t, "", "config", "show")
	if code != 0 || !strings.Contains(stdout, "user_id: bob") || !strings.Contains(stdout, "model: gpt-4o-mini") {
		t.Fatalf("show: exit %d, %s", code, stdout)
	}

	execute(t, "", "config", "delete-context", "family")
	stdout, _, _ = execute(t, "", "config", "current-context")
	if !strings.Contains(stdout, "No current context") {
		t.Fatalf("current-context after delete = %q", stdout)
	}
}

func TestIncome(t *testing.T) {
	setupTestEnv(t)

	if _, stderr, code := execute(t, "", "income", "set", "3200"); code != 0 {
		t.Fatalf("set: %s", stderr)
	}
	if _, stderr, code := execute(t, "", "income", "add", "freelance", "450.5"); code != 0 {
		t.Fatalf("add: %s", stderr)
	}
	stdout, stderr, code := execute(t, "", "income", "summary", "-o", "json")
	if code != 0 {
		t.Fatalf("summary: %s", stderr)
	}
	var summary struct {
		TotalIncome float64 `json:"total_income"`
		Message     string  `json:"message"`
	}
	if err := json.Unmarshal([]byte(stdout), &summary); err != nil {
		t.Fatalf("summary output %q: %v", stdout, err)
	}
	if summary.TotalIncome != 3650.5 || summary.Message != "Total income: €3650.50" {
		t.Fatalf("summary = %+v", summary)
	}

	if _, _, code := execute(t, "", "income", "set", "lots"); code == 0 {
		t.Fatal("non-numeric amount accepted")
	}
}

func TestKeywords(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := execute(t, "", "keyword", "add", "income", "ACME")
	if code != 0 || !strings.Contains(stdout, "added") {
		t.Fatalf("add: exit %d, %s", code, stdout)
	}
	stdout, _, _ = execute(t, "", "keyword", "add", "income", "acme")
	if !strings.Contains(stdout, "already") {
		t.Fatalf("duplicate add: %s", stdout)
	}
	if _, stderr, code := execute(t, "", "keyword", "add", "luxury", "yacht"); code == 0 {
		t.Fatalf("invalid group accepted: %s", stderr)
	}
	stdout, _, _ = execute(t, "", "keyword", "list", "-o", "json")
	if !strings.Contains(stdout, `"acme"`) {
		t.Fatalf("list: %s", stdout)
	}
}

func TestStatementImportAndParse(t *testing.T) {
	setupTestEnv(t)

	src := filepath.Join(t.TempDir(), "march.txt")
	data := "01.03.2024  Gehalt ACME GmbH  3.250,00 €\n02.03.2024  REWE Markt  -54,23 €\nnot a transaction\n"
	if err := os.WriteFile(src, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, stderr, code := execute(t, "", "statement", "import", src); code != 0 {
		t.Fatalf("import: %s", stderr)
	}
	stdout, _, _ := execute(t, "", "statement", "list")
	if strings.TrimSpace(stdout) != "march.txt" {
		t.Fatalf("list = %q", stdout)
	}

	stdout, stderr, code := execute(t, "", "statement", "parse", "march.txt", "--save", "-o", "json")
	if code != 0 {
		t.Fatalf("parse: %s", stderr)
	}
	var txs []map[string]any
	if err := json.Unmarshal([]byte(stdout), &txs); err != nil {
		t.Fatalf("parse output %q: %v", stdout, err)
	}
	if len(txs) != 2 || txs[0]["amount"] != 3250.0 {
		t.Fatalf("txs = %v", txs)
	}
	if !strings.Contains(stderr, "2 of 2") {
		t.Fatalf("stderr = %q", stderr)
	}

	stdout, _, _ = execute(t, "", "tools", "call", "query_transactions", "--args", `{"filter":"length"}`, "-o", "json")
	if !strings.Contains(stdout, `"result": [`) || !strings.Contains(stdout, "2") {
		t.Fatalf("query: %s", stdout)
	}
}

func TestToolsList(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := execute(t, "", "tools", "list")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	for _, name := range []string{"parse_bank_statement", "summarize_budget", "terminate (terminal)"} {
		if !strings.Contains(stdout, name) {
			t.Errorf("tools list missing %s:\n%s", name, stdout)
		}
	}
}

func TestToolsCall(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := execute(t, "", "tools", "call", "record_income", "--args", `{"amount": 2500}`, "-o", "json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stdout)
	}
	if !strings.Contains(stdout, `"tool_executed": true`) || !strings.Contains(stdout, "Income of €2500.00 recorded successfully.") {
		t.Fatalf("stdout: %s", stdout)
	}

	argsFile := filepath.Join(t.TempDir(), "args.yaml")
	if err := os.WriteFile(argsFile, []byte("source_name: rental\namount: 300\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, stderr, code := execute(t, "", "tools", "call", "record_income_source", "-f", argsFile); code != 0 {
		t.Fatalf("call with file: %s", stderr)
	}

	stdout, _, code = execute(t, "", "tools", "call", "record_income", "--args", `{}`, "-o", "json")
	if code == 0 || !strings.Contains(stdout, `"tool_executed": false`) {
		t.Fatalf("missing argument: exit %d, %s", code, stdout)
	}
	if _, _, code := execute(t, "", "tools", "call", "fly"); code == 0 {
		t.Fatal("unknown tool accepted")
	}
}

func TestRun(t *testing.T) {
	setupTestEnv(t)
	useGenerator(t,
		`{"tool":"record_income","args":{"amount":3100}}`,
		`{"tool":"terminate","args":{"message":"Saved your income."}}`,
	)

	stdout, stderr, code := execute(t, "", "run", "my", "salary", "is", "3100")
	if code != 0 {
		t.Fatalf("run: %s", stderr)
	}
	for _, want := range []string{"my salary is 3100", "Income of €3100.00 recorded successfully.", "Saved your income."} {
		if !strings.Contains(stdout, want) {
			t.Errorf("run output missing %q:\n%s", want, stdout)
		}
	}

	stdout, _, _ = execute(t, "", "income", "summary", "-o", "json")
	if !strings.Contains(stdout, `"total_income": 3100`) {
		t.Fatalf("income not recorded: %s", stdout)
	}
}

func TestRunWithoutModel(t *testing.T) {
	setupTestEnv(t)
	if _, stderr, code := execute(t, "", "run", "hi"); code == 0 || !strings.Contains(stderr, "no model") {
		t.Fatalf("exit %d, stderr: %s", code, stderr)
	}
}

func TestChatSession(t *testing.T) {
	setupTestEnv(t)
	useGenerator(t)

	stdout, stderr, code := execute(t, "hello\n\nexit\n", "chat", "--session", "march")
	if code != 0 {
		t.Fatalf("chat: %s", stderr)
	}
	if !strings.Contains(stdout, "hello") || !strings.Contains(stdout, "done") {
		t.Fatalf("chat output:\n%s", stdout)
	}

	stdout, _, _ = execute(t, "", "session", "list", "-o", "json")
	var sessions []struct {
		Name    string `json:"name"`
		Entries int    `json:"entries"`
	}
	if err := json.Unmarshal([]byte(stdout), &sessions); err != nil {
		t.Fatalf("session list %q: %v", stdout, err)
	}
	if len(sessions) != 1 || sessions[0].Name != "march" || sessions[0].Entries != 3 {
		t.Fatalf("sessions = %+v", sessions)
	}

	execute(t, "second\nquit\n", "chat", "--session", "march")
	stdout, _, _ = execute(t, "", "session", "show", "march", "-o", "json")
	if n := strings.Count(stdout, `"type": "user"`); n != 2 {
		t.Fatalf("user entries = %d:\n%s", n, stdout)
	}

	execute(t, "", "session", "delete", "march")
	if _, _, code := execute(t, "", "session", "show", "march"); code == 0 {
		t.Fatal("deleted session still shown")
	}
}
