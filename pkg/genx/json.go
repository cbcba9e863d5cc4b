package genx

import (
	"encoding/json"
	"errors"

	"github.com/kaptinlin/jsonrepair"
)

// unmarshalJSON decodes provider-generated JSON. Models occasionally emit
// trailing commas or unquoted keys in tool arguments; on a syntax error the
// payload is passed through jsonrepair once.
func unmarshalJSON(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	var syntaxErr *json.SyntaxError
	if err == nil || !errors.As(err, &syntaxErr) {
		return err
	}
	fixed, rerr := jsonrepair.JSONRepair(string(data))
	if rerr != nil {
		return err
	}
	return json.Unmarshal([]byte(fixed), v)
}
