// Package delta computes and applies the partial-update objects carried in
// action descriptors. Inputs are canonicalized first so that a field stored
// under several historical spellings diffs as one field.
package delta

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"
)

// ErrEmpty is returned by Create when the documents do not differ.
var ErrEmpty = errors.New("delta: no changes")

// Canonicalize rewrites top-level alias keys to their canonical names. When
// both spellings exist the canonical key keeps its value; among aliases alone
// the lexically first one wins.
func Canonicalize(doc map[string]interface{}) map[string]interface{} {
	if doc == nil {
		return nil
	}
	out := make(map[string]interface{}, len(doc))
	for key, value := range doc {
		if _, isAlias := aliases[key]; !isAlias {
			out[key] = value
		}
	}
	for _, key := range aliasOrder {
		value, present := doc[key]
		if !present {
			continue
		}
		canonical := aliases[key]
		if _, exists := out[canonical]; !exists {
			out[canonical] = value
		}
	}
	return out
}

// aliasOrder lists the alias keys sorted.
var aliasOrder = func() []string {
	keys := make([]string, 0, len(aliases))
	for key := range aliases {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}()

// CanonicalizeJSON applies Canonicalize to a JSON object.
func CanonicalizeJSON(raw json.RawMessage) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return json.RawMessage("{}"), nil
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}
	return json.Marshal(Canonicalize(doc))
}

// Create returns the RFC 7386 merge patch turning original into modified.
func Create(original, modified json.RawMessage) (json.RawMessage, error) {
	from, err := CanonicalizeJSON(original)
	if err != nil {
		return nil, fmt.Errorf("original: %w", err)
	}
	to, err := CanonicalizeJSON(modified)
	if err != nil {
		return nil, fmt.Errorf("modified: %w", err)
	}
	patch, err := jsonpatch.CreateMergePatch(from, to)
	if err != nil {
		return nil, fmt.Errorf("create merge patch: %w", err)
	}
	if bytes.Equal(bytes.TrimSpace(patch), []byte("{}")) {
		return nil, ErrEmpty
	}
	return patch, nil
}

// Apply merges patch into doc. Both are canonicalized, so applying the same
// patch twice yields the same document.
func Apply(doc, patch json.RawMessage) (json.RawMessage, error) {
	base, err := CanonicalizeJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}
	p, err := CanonicalizeJSON(patch)
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	merged, err := jsonpatch.MergePatch(base, p)
	if err != nil {
		return nil, fmt.Errorf("merge patch: %w", err)
	}
	return merged, nil
}

// Changes lists the RFC 6902 operations turning before into after.
func Changes(before, after json.RawMessage) (jsondiff.Patch, error) {
	if len(bytes.TrimSpace(before)) == 0 {
		before = json.RawMessage("{}")
	}
	if len(bytes.TrimSpace(after)) == 0 {
		after = json.RawMessage("{}")
	}
	patch, err := jsondiff.CompareJSON(before, after)
	if err != nil {
		return nil, fmt.Errorf("compare documents: %w", err)
	}
	return patch, nil
}

// Preview returns the operations that applying patch to doc would perform.
func Preview(doc, patch json.RawMessage) (jsondiff.Patch, error) {
	base, err := CanonicalizeJSON(doc)
	if err != nil {
		return nil, err
	}
	merged, err := Apply(base, patch)
	if err != nil {
		return nil, err
	}
	return Changes(base, merged)
}

// Reverse returns the operations that undo an applied change.
func Reverse(before, after json.RawMessage) (jsondiff.Patch, error) {
	return Changes(after, before)
}
