package descriptor

import (
	"fmt"
	"strings"
)

// Placeholders used when the request has not been persisted yet or the
// requester is unknown.
const (
	PendingProtocol  = "REQ-PENDENTE"
	DefaultRequester = "Operador"
)

const narrativeTemplate = "(AÇÃO %s) –\nUsuário: %s\nOperação: %s\nContexto: %s\nDetalhes: %s\nValor envolvido: %s"

// Narrative renders the multi-line explanation shown to reviewers.
func (f Fields) Narrative(protocolID, requesterName string) string {
	protocolID = strings.TrimSpace(protocolID)
	if protocolID == "" {
		protocolID = PendingProtocol
	}
	requesterName = strings.TrimSpace(requesterName)
	if requesterName == "" {
		requesterName = DefaultRequester
	}
	return fmt.Sprintf(narrativeTemplate, protocolID, requesterName, f.Operation, f.Context, f.Detail, f.Value)
}

// Explain decodes label and renders its narrative in one call.
func Explain(label, protocolID, requesterName string) string {
	return Decode(label).Narrative(protocolID, requesterName)
}

// Summary is a one-line form used in audit messages.
func (f Fields) Summary() string {
	if f.RealID == "" {
		return fmt.Sprintf("%s (%s)", f.Operation, f.Context)
	}
	return fmt.Sprintf("%s (%s) #%s", f.Operation, f.Context, shortRef(f.RealID))
}

func shortRef(id string) string {
	runes := []rune(id)
	if len(runes) <= 5 {
		return id
	}
	return string(runes[len(runes)-5:])
}
