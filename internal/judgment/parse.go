package judgment

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON pulls the first JSON object or array out of model output.
// Model responses regularly wrap JSON in markdown fences or prose, so we
// strip fences and slice from the first opening bracket to its matching
// closing bracket before unmarshaling.
func ExtractJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx != -1 {
			text = text[idx+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")

	start, opening, closing := objStart, "{", "}"
	if objStart == -1 || (arrStart != -1 && arrStart < objStart) {
		start, opening, closing = arrStart, "[", "]"
	}
	if start == -1 {
		return "", fmt.Errorf("no JSON found in response")
	}

	end := strings.LastIndex(text, closing)
	if end <= start {
		return "", fmt.Errorf("unterminated JSON %s in response", opening)
	}

	return text[start : end+1], nil
}

// DecodeJSON extracts and unmarshals a JSON payload from model output.
func DecodeJSON(raw string, v any) error {
	payload, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("unmarshal response JSON: %w", err)
	}
	return nil
}

// clamp01 bounds a score to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
