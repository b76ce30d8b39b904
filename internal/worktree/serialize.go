// Package worktree materializes and removes documents on disk,
// computes canonical paths from a document's _id and a database's
// serialization mode, and parses a file's content back into a FatDoc.
package worktree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sosuisen/gitdocdb/internal/kinds"
)

// Serialization is the on-disk document encoding a database was
// configured with.
type Serialization string

const (
	SerializationJSON         Serialization = "json"
	SerializationFrontMatter  Serialization = "front-matter"
	SerializationYAML         Serialization = "yaml"
)

// Postfix returns the file extension this serialization mode uses.
func (s Serialization) Postfix() string {
	switch s {
	case SerializationFrontMatter:
		return ".md"
	case SerializationYAML:
		return ".yml"
	default:
		return ".json"
	}
}

const frontMatterDelimiter = "---"

// Encode renders doc's body to bytes per the serialization mode.
func Encode(s Serialization, doc map[string]any) ([]byte, error) {
	switch s {
	case SerializationFrontMatter:
		return encodeFrontMatter(doc)
	case SerializationYAML:
		return encodeYAML(doc)
	default:
		return encodeJSON(doc)
	}
}

// Decode parses raw file content back into a document body.
func Decode(s Serialization, data []byte) (map[string]any, error) {
	switch s {
	case SerializationFrontMatter:
		return decodeFrontMatter(data)
	case SerializationYAML:
		return decodeYAML(data)
	default:
		return decodeJSON(data)
	}
}

// encodeJSON marshals doc with lexicographically sorted keys and a
// trailing newline; numbers round-trip in their shortest form because
// the document's values came from a prior json.Unmarshal into
// map[string]any and encoding/json never widens float64 precision.
func encodeJSON(doc map[string]any) ([]byte, error) {
	b, err := marshalSortedJSON(doc)
	if err != nil {
		return nil, kinds.New(kinds.InvalidJSON, "worktree.encodeJSON", err)
	}
	return append(b, '\n'), nil
}

func decodeJSON(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, kinds.New(kinds.InvalidJSON, "worktree.decodeJSON", err)
	}
	return doc, nil
}

func encodeYAML(doc map[string]any) ([]byte, error) {
	b, err := yaml.Marshal(doc)
	if err != nil {
		return nil, kinds.New(kinds.InvalidJSON, "worktree.encodeYAML", err)
	}
	return b, nil
}

func decodeYAML(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, kinds.New(kinds.InvalidJSON, "worktree.decodeYAML", err)
	}
	return normalizeYAMLMap(doc), nil
}

// encodeFrontMatter splits doc into a "---"-delimited YAML block (all
// fields except _body) followed by _body as raw markdown.
func encodeFrontMatter(doc map[string]any) ([]byte, error) {
	front := make(map[string]any, len(doc))
	var body string
	for k, v := range doc {
		if k == "_body" {
			body, _ = v.(string)
			continue
		}
		front[k] = v
	}

	var buf bytes.Buffer
	if len(front) > 0 {
		fmBytes, err := yaml.Marshal(front)
		if err != nil {
			return nil, kinds.New(kinds.InvalidJSON, "worktree.encodeFrontMatter", err)
		}
		buf.WriteString(frontMatterDelimiter + "\n")
		buf.Write(fmBytes)
		buf.WriteString(frontMatterDelimiter + "\n")
	}
	buf.WriteString(body)
	return buf.Bytes(), nil
}

func decodeFrontMatter(data []byte) (map[string]any, error) {
	str := string(data)
	if !strings.HasPrefix(str, frontMatterDelimiter) {
		return map[string]any{"_body": str}, nil
	}

	rest := str[len(frontMatterDelimiter):]
	idx := strings.Index(rest, "\n"+frontMatterDelimiter)
	if idx == -1 {
		return nil, kinds.New(kinds.InvalidJSON, "worktree.decodeFrontMatter", fmt.Errorf("unclosed front-matter block"))
	}

	fmYAML := rest[:idx]
	body := strings.TrimPrefix(rest[idx+len("\n"+frontMatterDelimiter):], "\n")

	var front map[string]any
	if err := yaml.Unmarshal([]byte(fmYAML), &front); err != nil {
		return nil, kinds.New(kinds.InvalidJSON, "worktree.decodeFrontMatter", err)
	}
	if front == nil {
		front = map[string]any{}
	}
	front = normalizeYAMLMap(front)
	front["_body"] = body
	return front, nil
}

// normalizeYAMLMap recursively converts map[any]any and nested
// map[string]any produced by yaml.v3 into plain map[string]any / []any
// so downstream diff/merge code only ever deals with the JSON-shaped
// value set encoding/json itself would have produced.
func normalizeYAMLMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeYAMLValue(v)
	}
	return out
}

func normalizeYAMLValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		return normalizeYAMLMap(vv)
	case map[any]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[fmt.Sprintf("%v", k)] = normalizeYAMLValue(val)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, val := range vv {
			out[i] = normalizeYAMLValue(val)
		}
		return out
	case int:
		return float64(vv)
	default:
		return v
	}
}

// marshalSortedJSON marshals m with keys in sorted order, since
// encoding/json's map marshaling already sorts string keys but we
// make it explicit here rather than depend on that stdlib detail
// silently continuing to hold.
func marshalSortedJSON(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
