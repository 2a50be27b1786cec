package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mpaguilar/msa-toy/internal/domain"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// Decode reads a T out of resp, trying the typed value first, then the
// structured map, then a JSON object embedded in the text content.
func Decode[T any](resp *domain.LLMResponse) (T, error) {
	var zero T
	if resp == nil {
		return zero, domain.ErrNoStructuredOutput
	}

	switch v := resp.Typed.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}

	var errs []error
	if resp.Structured != nil {
		out, err := decodeStructured[T](resp.Structured)
		if err == nil {
			return out, nil
		}
		errs = append(errs, err)
	}

	if resp.Content != "" {
		raw, ok := ExtractJSON(resp.Content)
		if ok {
			var out T
			err := json.Unmarshal([]byte(raw), &out)
			if err == nil {
				return out, nil
			}
			errs = append(errs, fmt.Errorf("unmarshal content: %w", err))
		} else {
			errs = append(errs, fmt.Errorf("no JSON object in content"))
		}
	}

	if len(errs) == 0 {
		return zero, domain.ErrNoStructuredOutput
	}
	return zero, fmt.Errorf("%w: %w", domain.ErrNoStructuredOutput, errors.Join(errs...))
}

func decodeStructured[T any](m map[string]any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(m); err != nil {
		return out, fmt.Errorf("decode structured output: %w", err)
	}
	return out, nil
}

// ExtractJSON finds a JSON object in free text: a fenced ```json block if
// present, otherwise the span from the first '{' to the last '}'.
func ExtractJSON(text string) (string, bool) {
	text = strings.TrimSpace(text)

	if m := fencedJSON.FindStringSubmatch(text); m != nil && json.Valid([]byte(m[1])) {
		return m[1], true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", false
	}
	return candidate, true
}

// structuredFromContent is used by clients to fill LLMResponse.Structured
// when a schema was requested.
func structuredFromContent(content string) map[string]any {
	raw, ok := ExtractJSON(content)
	if !ok {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}
