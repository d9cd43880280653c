package twitter

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The upstream API is loose about payload shape: the same endpoint can wrap
// results under "data", under a named array, or inline them at the top level.
// Extraction is an ordered list of strategies tried in sequence; the first
// non-empty result wins.

type userIDExtractor func(payload map[string]any) string

var userIDExtractors = []userIDExtractor{
	func(p map[string]any) string { return stringField(childObject(p, "data"), "id") },
	func(p map[string]any) string {
		return stringField(childObject(childObject(p, "data"), "user"), "id")
	},
	func(p map[string]any) string { return stringField(p, "id") },
}

// extractUserID parses a user-info payload. Returns "" when no strategy
// finds an identifier.
func extractUserID(raw []byte) (string, error) {
	payload, err := decodePayload(raw)
	if err != nil {
		return "", fmt.Errorf("decode user payload: %w", err)
	}
	for _, extract := range userIDExtractors {
		if id := extract(payload); id != "" {
			return id, nil
		}
	}
	return "", nil
}

type postExtractor func(payload map[string]any) *Post

var postExtractors = []postExtractor{
	func(p map[string]any) *Post { return firstPost(childArray(childObject(p, "data"), "tweets")) },
	func(p map[string]any) *Post { return firstPost(childArray(p, "tweets")) },
	func(p map[string]any) *Post { return firstPost(childArray(p, "data")) },
}

// extractLatestPost parses a latest-tweets payload. Returns nil when no
// strategy yields a post.
func extractLatestPost(raw []byte) (*Post, error) {
	payload, err := decodePayload(raw)
	if err != nil {
		return nil, fmt.Errorf("decode tweets payload: %w", err)
	}
	for _, extract := range postExtractors {
		if post := extract(payload); post != nil {
			return post, nil
		}
	}
	return nil, nil
}

// decodePayload unmarshals with UseNumber so numeric post ids keep their
// full precision: real ids exceed 2^53 and would be corrupted by a float64
// round-trip.
func decodePayload(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func firstPost(items []any) *Post {
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := stringField(obj, "id")
		if id == "" {
			continue
		}
		text := stringField(obj, "text")
		if text == "" {
			text = stringField(obj, "full_text")
		}
		return &Post{ID: id, Text: text}
	}
	return nil
}

func childObject(payload map[string]any, key string) map[string]any {
	if payload == nil {
		return nil
	}
	obj, _ := payload[key].(map[string]any)
	return obj
}

func childArray(payload map[string]any, key string) []any {
	if payload == nil {
		return nil
	}
	arr, _ := payload[key].([]any)
	return arr
}

// stringField reads a field that may arrive as a string or a JSON number.
func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
