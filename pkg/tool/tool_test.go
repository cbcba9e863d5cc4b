package tool_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/finsense/finsense/pkg/memory"
	"github.com/finsense/finsense/pkg/tool"
)

type addArgs struct {
	A int `json:"a"`
	B int `json:"b"`
}

func add(_ context.Context, _ *tool.Call, args addArgs) (any, error) {
	return args.A + args.B, nil
}

type recordArgs struct {
	Amount float64 `json:"amount" jsonschema:"monthly income"`
}

func recordIncome(_ context.Context, _ *tool.Call, args recordArgs) (any, error) {
	return args.Amount, nil
}

type mixedArgs struct {
	Name     string            `json:"name"`
	Count    int64             `json:"count"`
	Ratio    float32           `json:"ratio"`
	Enabled  bool              `json:"enabled"`
	Items    []string          `json:"items"`
	Meta     map[string]string `json:"meta"`
	When     time.Time         `json:"when"`
	Anything any               `json:"anything"`
	Raw      []byte            `json:"raw"`
	Limit    *int              `json:"limit"`
	Note     string            `json:"note,omitempty"`
	Period   string            `json:"period" default:"this month"`
	Max      int               `json:"max" default:"10"`
	Skipped  string            `json:"-"`
	Ctx      context.Context
	Call     *tool.Call
	internal int
}

func TestScenarioAddInference(t *testing.T) {
	reg := tool.NewRegistry()
	got, err := tool.Register(reg, add)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got.Name != "add" {
		t.Errorf("name = %q, want add", got.Name)
	}
	if got.Description != tool.DefaultDescription {
		t.Errorf("description = %q", got.Description)
	}
	p := got.Parameters
	if p.Type != "object" {
		t.Fatalf("type = %q, want object", p.Type)
	}
	if len(p.Properties) != 2 {
		t.Fatalf("properties = %v", tool.SchemaProperties(p))
	}
	for _, name := range []string{"a", "b"} {
		if p.Properties[name].Type != "integer" {
			t.Errorf("%s type = %q, want integer", name, p.Properties[name].Type)
		}
	}
	if !slices.Equal(p.Required, []string{"a", "b"}) {
		t.Errorf("required = %v, want [a b]", p.Required)
	}
}

func TestInferTypeTokens(t *testing.T) {
	s, err := tool.InferSchema[mixedArgs]()
	if err != nil {
		t.Fatalf("InferSchema: %v", err)
	}
	want := map[string]string{
		"name":     "string",
		"count":    "integer",
		"ratio":    "number",
		"enabled":  "boolean",
		"items":    "array",
		"meta":     "object",
		"when":     "string",
		"anything": "string",
		"raw":      "string",
		"limit":    "integer",
		"note":     "string",
		"period":   "string",
		"max":      "integer",
	}
	if len(s.Properties) != len(want) {
		t.Fatalf("properties = %v", tool.SchemaProperties(s))
	}
	for name, typ := range want {
		prop, ok := s.Properties[name]
		if !ok {
			t.Errorf("missing property %q", name)
			continue
		}
		if prop.Type != typ {
			t.Errorf("%s type = %q, want %q", name, prop.Type, typ)
		}
	}
	if s.Properties["items"].Items == nil || s.Properties["items"].Items.Type != "string" {
		t.Errorf("items.items = %+v", s.Properties["items"].Items)
	}

	wantRequired := []string{"name", "count", "ratio", "enabled", "items", "meta", "when", "anything", "raw"}
	if !slices.Equal(s.Required, wantRequired) {
		t.Errorf("required = %v, want %v", s.Required, wantRequired)
	}
	if string(s.Properties["period"].Default) != `"this month"` {
		t.Errorf("period default = %s", s.Properties["period"].Default)
	}
	if string(s.Properties["max"].Default) != `10` {
		t.Errorf("max default = %s", s.Properties["max"].Default)
	}
}

func TestInferRejectsNonStruct(t *testing.T) {
	if _, err := tool.InferSchema[int](); !errors.Is(err, tool.ErrArgType) {
		t.Fatalf("err = %v, want ErrArgType", err)
	}
}

func TestInferEmbedded(t *testing.T) {
	type base struct {
		User string `json:"user"`
	}
	type args struct {
		base
		Month string `json:"month,omitempty"`
	}
	s, err := tool.InferSchema[args]()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Properties["user"]; !ok {
		t.Fatalf("embedded field not flattened: %v", tool.SchemaProperties(s))
	}
	if !slices.Equal(s.Required, []string{"user"}) {
		t.Fatalf("required = %v", s.Required)
	}
}

func TestDerivedNameAndDescription(t *testing.T) {
	reg := tool.NewRegistry()
	got := tool.MustRegister(reg, recordIncome, tool.WithDescription("Records income."))
	if got.Name != "record_income" {
		t.Errorf("name = %q, want record_income", got.Name)
	}
	if got.Description != "Records income." {
		t.Errorf("description = %q", got.Description)
	}
	if d := got.Parameters.Properties["amount"].Description; d != "monthly income" {
		t.Errorf("amount description = %q", d)
	}
}

func TestAnonymousNeedsName(t *testing.T) {
	reg := tool.NewRegistry()
	_, err := tool.Register(reg, func(context.Context, *tool.Call, struct{}) (any, error) {
		return nil, nil
	})
	if !errors.Is(err, tool.ErrNoName) {
		t.Fatalf("err = %v, want ErrNoName", err)
	}
	named, err := tool.Register(reg, func(context.Context, *tool.Call, struct{}) (any, error) {
		return nil, nil
	}, tool.WithName("noop"))
	if err != nil {
		t.Fatal(err)
	}
	if len(named.Parameters.Properties) != 0 || len(named.Parameters.Required) != 0 {
		t.Fatalf("unexpected parameters: %+v", named.Parameters)
	}
}

func TestSchemaOverride(t *testing.T) {
	override := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"x": {Type: "number"},
		},
	}
	got, err := tool.New(add, tool.WithParameters(override))
	if err != nil {
		t.Fatal(err)
	}
	if got.Parameters != override {
		t.Fatal("override schema not used")
	}
}

func TestTypeSchemaOverride(t *testing.T) {
	type flexible []string
	type args struct {
		Values flexible `json:"values"`
	}
	got, err := tool.New(func(context.Context, *tool.Call, args) (any, error) { return nil, nil },
		tool.WithName("flex"),
		tool.WithTypeSchema[flexible](&jsonschema.Schema{Types: []string{"array", "string"}}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if types := got.Parameters.Properties["values"].Types; !slices.Equal(types, []string{"array", "string"}) {
		t.Fatalf("values types = %v", types)
	}
}

func TestRegistryTagsAndReplace(t *testing.T) {
	reg := tool.NewRegistry()
	tool.MustRegister(reg, add, tool.WithTags("math", "budgeting"))
	tool.MustRegister(reg, recordIncome, tool.WithTags("budgeting"))

	if n := len(reg.Tagged("budgeting")); n != 2 {
		t.Fatalf("budgeting tools = %d, want 2", n)
	}

	tool.MustRegister(reg, add, tool.WithTags("other"), tool.Terminal())
	if reg.Len() != 2 {
		t.Fatalf("len = %d, want 2", reg.Len())
	}
	got, ok := reg.Get("add")
	if !ok || !got.Terminal {
		t.Fatalf("replacement not stored: %+v", got)
	}
	if n := len(reg.Tagged("math")); n != 0 {
		t.Errorf("math tools after replace = %d, want 0", n)
	}
	if n := len(reg.Tagged("budgeting")); n != 1 {
		t.Errorf("budgeting tools after replace = %d, want 1", n)
	}
	all := reg.All()
	if all[0].Name != "add" || all[1].Name != "record_income" {
		t.Errorf("order = %s, %s", all[0].Name, all[1].Name)
	}
}

func TestInvoke(t *testing.T) {
	at := tool.MustRegister(tool.NewRegistry(), add)
	got, err := at.Invoke(context.Background(), map[string]any{"a": 2, "b": 3})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != 5 {
		t.Fatalf("Invoke = %v, want 5", got)
	}

	if _, err := at.Invoke(context.Background(), map[string]any{"a": 2}); err == nil {
		t.Error("missing required argument accepted")
	}
	if _, err := at.Invoke(context.Background(), map[string]any{"a": "two", "b": 3}); err == nil {
		t.Error("wrong argument type accepted")
	}
}

func TestInvokeDefaultsAndCall(t *testing.T) {
	type args struct {
		Period string `json:"period" default:"this month"`
		Limit  int    `json:"limit" default:"3"`
	}
	var gotCall *tool.Call
	var gotArgs args
	lt := tool.MustRegister(tool.NewRegistry(), func(_ context.Context, call *tool.Call, a args) (any, error) {
		gotCall, gotArgs = call, a
		return nil, nil
	}, tool.WithName("list"))

	mem := memory.New()
	ctx := tool.NewContext(context.Background(), &tool.Call{RunID: "run-1", Memory: mem})
	if _, err := lt.Invoke(ctx, nil); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if gotArgs.Period != "this month" || gotArgs.Limit != 3 {
		t.Errorf("args = %+v", gotArgs)
	}
	if gotCall == nil || gotCall.Tool != "list" || gotCall.RunID != "run-1" || gotCall.Memory != mem {
		t.Errorf("call = %+v", gotCall)
	}
}
