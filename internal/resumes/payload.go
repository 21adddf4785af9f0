package resumes

import (
	"encoding/json"
	"strings"
)

// ExtractJSONPayload returns the text between the first '{' and the last
// '}' of the trimmed model output. Models wrap JSON in prose or fences.
func ExtractJSONPayload(text string) (string, error) {
	cleaned := strings.TrimSpace(text)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrInvalidAIOutput
	}
	payload := cleaned[start : end+1]
	if !json.Valid([]byte(payload)) {
		return "", ErrInvalidAIOutput
	}
	return payload, nil
}
