package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/koustreak/pgbridge/internal/errs"
)

// ExtractArgs parses a request payload and extracts the required arguments.
//
// The payload must be a JSON object with a top-level "arguments" object.
// Missing required names are reported in a single deterministic message
// listing them in declared order. Only structural presence is checked here;
// type coercion is each tool's own responsibility.
func ExtractArgs(payload []byte, required []string) (map[string]any, *errs.Error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, errs.New(errs.ErrKindValidation, "Invalid JSON format in input context.")
	}

	rawArgs, ok := envelope["arguments"]
	if !ok {
		return nil, errs.New(errs.ErrKindValidation, "Invalid input format: 'arguments' key missing.")
	}

	var args map[string]any
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return nil, errs.New(errs.ErrKindValidation, "Invalid input format: 'arguments' must be an object.")
	}

	var missing []string
	extracted := make(map[string]any, len(required))
	for _, name := range required {
		val, ok := args[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		extracted[name] = val
	}
	if len(missing) > 0 {
		return nil, errs.New(errs.ErrKindValidation, missingMessage(missing))
	}

	return extracted, nil
}

// missingMessage renders the missing-argument error. Names keep their
// declared order, so the message is stable across calls.
func missingMessage(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}

	switch len(quoted) {
	case 1:
		return fmt.Sprintf("Missing required argument: %s.", quoted[0])
	case 2:
		return fmt.Sprintf("Missing required arguments: %s and %s.", quoted[0], quoted[1])
	default:
		head := strings.Join(quoted[:len(quoted)-1], ", ")
		return fmt.Sprintf("Missing required arguments: %s and %s.", head, quoted[len(quoted)-1])
	}
}

// intArg coerces the named argument to an integer. JSON numbers (when
// whole) and numeric strings are accepted; anything else fails. The caller
// owns the user-facing message; this returns ok=false, never panics.
func intArg(args map[string]any, name string) (int, bool) {
	switch v := args[name].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// stringArg coerces the named argument to a string.
func stringArg(args map[string]any, name string) (string, bool) {
	v, ok := args[name].(string)
	return v, ok
}
