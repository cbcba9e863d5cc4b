package environment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the layout of [Result.Timestamp]: ISO-8601 local time
// with second precision.
const TimestampLayout = "2006-01-02T15:04:05"

// Result is the envelope of one action invocation. Exactly one of the
// success fields (Result, Timestamp) or failure fields (Error, Traceback) is
// meaningful, selected by ToolExecuted.
type Result struct {
	ToolExecuted bool
	Result       any
	Timestamp    string
	Error        string
	Traceback    string
}

// Success returns the envelope of a successful invocation.
func Success(v any, at time.Time) Result {
	return Result{
		ToolExecuted: true,
		Result:       v,
		Timestamp:    at.Local().Format(TimestampLayout),
	}
}

// Failure returns the envelope of a failed invocation. An empty traceback is
// filled with the error chain.
func Failure(err error, traceback string) Result {
	msg := err.Error()
	if msg == "" {
		msg = fmt.Sprintf("%T", err)
	}
	if traceback == "" {
		traceback = errorChain(err)
	}
	return Result{Error: msg, Traceback: traceback}
}

// OK reports whether the tool ran successfully.
func (r Result) OK() bool { return r.ToolExecuted }

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.ToolExecuted {
		return nil
	}
	return errors.New(r.Error)
}

type successJSON struct {
	ToolExecuted bool   `json:"tool_executed"`
	Result       any    `json:"result"`
	Timestamp    string `json:"timestamp"`
}

type failureJSON struct {
	ToolExecuted bool   `json:"tool_executed"`
	Error        string `json:"error"`
	Traceback    string `json:"traceback,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.ToolExecuted {
		return json.Marshal(successJSON{true, r.Result, r.Timestamp})
	}
	return json.Marshal(failureJSON{false, r.Error, r.Traceback})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var raw struct {
		ToolExecuted bool            `json:"tool_executed"`
		Result       json.RawMessage `json:"result"`
		Timestamp    string          `json:"timestamp"`
		Error        string          `json:"error"`
		Traceback    string          `json:"traceback"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Result{
		ToolExecuted: raw.ToolExecuted,
		Timestamp:    raw.Timestamp,
		Error:        raw.Error,
		Traceback:    raw.Traceback,
	}
	if len(raw.Result) > 0 {
		var v any
		if err := json.Unmarshal(raw.Result, &v); err != nil {
			return err
		}
		r.Result = v
	}
	return nil
}

// Encode serializes r for storage in memory.
func (r Result) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("environment: encode result: %w", err)
	}
	return string(b), nil
}

func errorChain(err error) string {
	var b strings.Builder
	for i := 0; err != nil; i++ {
		fmt.Fprintf(&b, "%s%T: %v\n", strings.Repeat("  ", i), err, err)
		err = errors.Unwrap(err)
	}
	return b.String()
}
