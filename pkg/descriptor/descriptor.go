// Package descriptor encodes and decodes the pipe-delimited action labels that
// carry a proposed mutation through the authorization workflow.
//
// Grammar:
//
//	OP: <operation> | CTX: <context> | DET: <detail> | VAL: <value> | REAL_ID: <id> | JSON: <delta>
//
// REAL_ID and JSON are optional and always trail the presentation tokens in
// that order. The JSON token runs to the end of the label.
package descriptor

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Token keys.
const (
	KeyOperation  = "OP"
	KeyContext    = "CTX"
	KeyDetail     = "DET"
	KeyValue      = "VAL"
	KeyValueAlias = "VALOR"
	KeyRealID     = "REAL_ID"
	KeyJSON       = "JSON"
	KeyLegacyID   = "ID"
)

// Separator joins tokens.
const Separator = " | "

// Reviewer-facing fallbacks for missing presentation tokens.
const (
	DefaultOperation = "Operação Restrita"
	DefaultContext   = "Módulo Administrativo"
	DefaultDetail    = "Solicitação para alteração ou remoção de registro."
	DefaultValue     = "R$ 0,00"

	LegacyOperation = "Ação Manual Restrita"
	LegacyContext   = "Módulo Interno"
	legacyDetailFmt = "Solicitação para o registro REF: "
	legacyNoRef     = "S/R"
)

const jsonMarker = Separator + KeyJSON + ":"

// Descriptor is the structured form of an action label.
type Descriptor struct {
	Operation string          `json:"operation"`
	Context   string          `json:"context"`
	Detail    string          `json:"detail"`
	Value     string          `json:"value"`
	RealID    string          `json:"realId,omitempty"`
	Delta     json.RawMessage `json:"delta,omitempty"`
}

// Fields is the tolerant decoding of a label. Presentation fields are always
// populated; RealID and Delta are empty when the label did not carry them.
type Fields struct {
	Descriptor
	// Extra keeps tokens with unrecognised keys, e.g. the historical "ID: #xxxxx".
	Extra map[string]string `json:"extra,omitempty"`
	// Defaulted lists the presentation keys that fell back to defaults.
	Defaulted []string `json:"defaulted,omitempty"`
	Legacy    bool     `json:"legacy,omitempty"`
	LegacyID  string   `json:"legacyId,omitempty"`
}

// Encode renders d as a label. Presentation tokens are always emitted; REAL_ID
// and JSON only when present.
func Encode(d Descriptor) string {
	parts := []string{
		KeyOperation + ": " + sanitize(d.Operation),
		KeyContext + ": " + sanitize(d.Context),
		KeyDetail + ": " + sanitize(d.Detail),
		KeyValue + ": " + sanitize(d.Value),
	}
	if id := sanitize(d.RealID); id != "" {
		parts = append(parts, KeyRealID+": "+id)
	}
	if delta := compact(d.Delta); len(delta) > 0 {
		parts = append(parts, KeyJSON+": "+string(delta))
	}
	return strings.Join(parts, Separator)
}

// Decode parses a label. It never fails: malformed, partial and legacy labels
// decode to defaults.
func Decode(label string) Fields {
	head, delta := splitJSON(label)
	tokens := tokenize(head)

	fields := Fields{}
	if len(delta) > 0 {
		fields.Delta = delta
	}

	var (
		hasOperation bool
		value        string
		valueAlias   string
	)
	for _, tok := range tokens {
		switch tok.key {
		case KeyOperation:
			hasOperation = true
			fields.Operation = tok.value
		case KeyContext:
			fields.Context = tok.value
		case KeyDetail:
			fields.Detail = tok.value
		case KeyValue:
			value = tok.value
		case KeyValueAlias:
			valueAlias = tok.value
		case KeyRealID:
			fields.RealID = tok.value
		default:
			if fields.Extra == nil {
				fields.Extra = make(map[string]string)
			}
			fields.Extra[tok.key] = tok.value
		}
	}
	fields.Value = value
	if fields.Value == "" {
		fields.Value = valueAlias
	}

	legacyID, hasLegacyID := fields.Extra[KeyLegacyID]
	if !hasLegacyID && fields.RealID != "" {
		legacyID, hasLegacyID = fields.RealID, true
	}
	if !hasOperation && hasLegacyID {
		fields.Legacy = true
		fields.LegacyID = legacyID
		fields.Operation = LegacyOperation
		fields.Context = LegacyContext
		fields.Detail = legacyDetailFmt + legacyRef(legacyID)
	}

	fields.applyDefaults()
	return fields
}

// HasDelta reports whether the label carried a JSON token.
func (f Fields) HasDelta() bool {
	return len(f.Delta) > 0
}

// DeltaObject unmarshals the delta into a map.
func (f Fields) DeltaObject() (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if !f.HasDelta() {
		return out, nil
	}
	if err := json.Unmarshal(f.Delta, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Fields) applyDefaults() {
	if f.Operation == "" {
		f.Operation = DefaultOperation
		f.Defaulted = append(f.Defaulted, KeyOperation)
	}
	if f.Context == "" {
		f.Context = DefaultContext
		f.Defaulted = append(f.Defaulted, KeyContext)
	}
	if f.Detail == "" {
		f.Detail = DefaultDetail
		f.Defaulted = append(f.Defaulted, KeyDetail)
	}
	if f.Value == "" {
		f.Value = DefaultValue
		f.Defaulted = append(f.Defaulted, KeyValue)
	}
}

type token struct {
	key   string
	value string
}

// tokenize splits on the separator. A piece without a KEY: prefix belongs to
// the previous token's value.
func tokenize(head string) []token {
	if strings.TrimSpace(head) == "" {
		return nil
	}
	pieces := strings.Split(head, Separator)
	tokens := make([]token, 0, len(pieces))
	for _, piece := range pieces {
		key, value, ok := splitKey(piece)
		if !ok {
			if n := len(tokens); n > 0 {
				tokens[n-1].value = strings.TrimSpace(tokens[n-1].value + Separator + piece)
			}
			continue
		}
		tokens = append(tokens, token{key: key, value: value})
	}
	return tokens
}

func splitKey(piece string) (string, string, bool) {
	idx := strings.Index(piece, ":")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(piece[:idx])
	if !isKey(key) {
		return "", "", false
	}
	return key, strings.TrimSpace(piece[idx+1:]), true
}

func isKey(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}

// splitJSON separates the trailing JSON token. Only the first marker counts,
// since the JSON text itself may contain the separator.
func splitJSON(label string) (string, json.RawMessage) {
	var raw string
	switch {
	case strings.HasPrefix(label, KeyJSON+":"):
		raw = label[len(KeyJSON)+1:]
		label = ""
	default:
		idx := strings.Index(label, jsonMarker)
		if idx < 0 {
			return label, nil
		}
		raw = label[idx+len(jsonMarker):]
		label = label[:idx]
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return label, nil
	}
	return label, json.RawMessage(raw)
}

// sanitize flattens line breaks and rewrites every pipe. A pipe at either end
// of a value would otherwise fuse with the neighbouring separator.
var sanitizer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "|", "/")

func sanitize(s string) string {
	return strings.TrimSpace(sanitizer.Replace(s))
}

func compact(raw json.RawMessage) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return trimmed
	}
	return buf.Bytes()
}

func legacyRef(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return legacyNoRef
	}
	runes := []rune(id)
	if len(runes) > 8 {
		runes = runes[:8]
	}
	return string(runes)
}
