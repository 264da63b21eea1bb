// Package llmutil handles the formatting quirks of model output, chiefly
// JSON wrapped in markdown fences or conversational text.
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Backticks are written as \x60 because Go raw strings cannot contain them.
var fencedObjectPattern = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")

// ParseJSONResponse decodes a model response into T. Markdown fences and
// surrounding prose around the JSON object are stripped first.
func ParseJSONResponse[T any](response string) (*T, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, fmt.Errorf("model response is empty")
	}

	payload := response
	if strings.HasPrefix(response, "```") {
		if m := fencedObjectPattern.FindStringSubmatch(response); len(m) > 1 {
			payload = m[1]
		}
	} else if !strings.HasPrefix(response, "{") {
		// The object may be embedded in conversational text.
		first := strings.Index(response, "{")
		last := strings.LastIndex(response, "}")
		if first != -1 && last > first {
			payload = response[first : last+1]
		}
	}

	var result T
	if err := json.UnmarshalFromString(payload, &result); err != nil {
		return nil, fmt.Errorf("decoding model JSON response: %w (payload: %s)", err, truncate(payload, 500))
	}
	return &result, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
