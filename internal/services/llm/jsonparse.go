package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
)

// stripCodeFence removes a surrounding ```json ... ``` or ``` ... ``` block,
// which every vendor occasionally wraps structured output in despite being
// asked for raw JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		first := strings.TrimSpace(s[:nl])
		if first == "json" || first == "" {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decodeStructured unmarshals raw vendor text into out, tolerating the near-
// valid JSON that chat-completion models routinely emit (trailing commas,
// unescaped quotes, markdown fences). It tries a plain decode first and only
// pays the repair cost on failure.
func decodeStructured(raw string, out interface{}) error {
	candidate := stripCodeFence(raw)
	if err := json.Unmarshal([]byte(candidate), out); err == nil {
		return nil
	}

	repaired, err := jsonrepair.RepairJSON(candidate)
	if err != nil {
		return fmt.Errorf("structured output is not valid JSON and could not be repaired: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("repaired JSON still does not match target shape: %w", err)
	}
	return nil
}
