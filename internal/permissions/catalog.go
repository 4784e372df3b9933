package permissions

import (
	"encoding/json"
	"sort"
)

// ActionKind selects how an approved action is applied to its collection.
type ActionKind string

const (
	KindMergePatch ActionKind = "MERGE_PATCH"
	KindFixedPatch ActionKind = "FIXED_PATCH"
	KindDelete     ActionKind = "DELETE"
	KindInsert     ActionKind = "INSERT"
)

// Document collections touched by catalogued actions.
const (
	CollectionBanks             = "banks"
	CollectionPartners          = "partners"
	CollectionTeamMembers       = "team_members"
	CollectionPaymentTerms      = "payment_terms"
	CollectionFinanceCategories = "finance_categories"
	CollectionFinancials        = "financials"
	CollectionTransactions      = "transactions"
	CollectionCashierSessions   = "cashier_sessions"
	CollectionMaterials         = "materials"
)

// ActionSpec describes one mutating action. An action with no remote
// authorizations is never gated.
type ActionSpec struct {
	Key        string `json:"key"`
	Permission string `json:"permission"`
	// RemoteAuthorizations lists the grants, any of which lets an operator
	// request the action.
	RemoteAuthorizations []string        `json:"remoteAuthorizations,omitempty"`
	Collection           string          `json:"collection"`
	Kind                 ActionKind      `json:"kind"`
	FixedPatch           json.RawMessage `json:"fixedPatch,omitempty"`
	Operation            string          `json:"operation"`
	Context              string          `json:"context"`
}

// Gated reports whether the action goes through dual control.
func (a ActionSpec) Gated() bool {
	return len(a.RemoteAuthorizations) > 0
}

// Action keys.
const (
	ActionEditBank              = "EDITAR_BANCO"
	ActionDeleteBank            = "EXCLUIR_BANCO"
	ActionEditPartner           = "EDITAR_PARCEIRO"
	ActionDeletePartner         = "EXCLUIR_PARCEIRO"
	ActionCreatePartner         = "CRIAR_PARCEIRO"
	ActionEditUser              = "EDITAR_USUARIO"
	ActionDeleteUser            = "EXCLUIR_USUARIO"
	ActionEditPaymentTerm       = "EDITAR_PRAZO_COMERCIAL"
	ActionDeletePaymentTerm     = "EXCLUIR_PRAZO_COMERCIAL"
	ActionEditFinanceCategory   = "EDITAR_CATEGORIA_FINANCEIRA"
	ActionDeleteFinanceCategory = "EXCLUIR_CATEGORIA_FINANCEIRA"
	ActionEditEntry             = "EDITAR_LANCAMENTO"
	ActionCancelEntry           = "CANCELAR_LANCAMENTO"
	ActionReverseEntry          = "ESTORNAR_LANCAMENTO"
	ActionAdjustOpening         = "AJUSTAR_ABERTURA"
	ActionManualEntry           = "LANCAMENTO_MANUAL"
	ActionCloseCashier          = "FECHAR_CAIXA"
	ActionEditPOSOperation      = "EDITAR_OPERACAO_PDV"
	ActionStockEdit             = AuthStockEdit
	ActionStockDelete           = AuthStockDelete
	ActionStockAdjust           = AuthStockAdjust
	ActionCreateMaterial        = "CRIAR_MATERIAL"
)

var catalog = map[string]ActionSpec{}

func register(specs ...ActionSpec) {
	for _, s := range specs {
		catalog[s.Key] = s
	}
}

func init() {
	register(
		ActionSpec{Key: ActionEditBank, Permission: FinanceEdit, RemoteAuthorizations: []string{AuthBanksEdit},
			Collection: CollectionBanks, Kind: KindMergePatch, Operation: "Edição de Banco", Context: "Financeiro / Bancos"},
		ActionSpec{Key: ActionDeleteBank, Permission: FinanceDelete, RemoteAuthorizations: []string{AuthBanksDelete},
			Collection: CollectionBanks, Kind: KindDelete, Operation: "Exclusão de Banco", Context: "Financeiro / Bancos"},

		ActionSpec{Key: ActionEditPartner, Permission: PartnersEdit, RemoteAuthorizations: []string{AuthPartnersEdit},
			Collection: CollectionPartners, Kind: KindMergePatch, Operation: "Edição de Parceiro", Context: "Parceiros"},
		ActionSpec{Key: ActionDeletePartner, Permission: PartnersDelete, RemoteAuthorizations: []string{AuthPartnersDelete},
			Collection: CollectionPartners, Kind: KindDelete, Operation: "Exclusão de Parceiro", Context: "Parceiros"},
		ActionSpec{Key: ActionCreatePartner, Permission: PartnersCreate,
			Collection: CollectionPartners, Kind: KindInsert, Operation: "Cadastro de Parceiro", Context: "Parceiros"},

		ActionSpec{Key: ActionEditUser, Permission: TeamEdit, RemoteAuthorizations: []string{AuthTeamsEdit},
			Collection: CollectionTeamMembers, Kind: KindMergePatch, Operation: "Edição de Usuário", Context: "Equipe"},
		ActionSpec{Key: ActionDeleteUser, Permission: TeamDelete, RemoteAuthorizations: []string{AuthTeamsDelete},
			Collection: CollectionTeamMembers, Kind: KindDelete, Operation: "Exclusão de Usuário", Context: "Equipe"},

		ActionSpec{Key: ActionEditPaymentTerm, Permission: FinanceEdit, RemoteAuthorizations: []string{AuthFinanceTermEdit},
			Collection: CollectionPaymentTerms, Kind: KindMergePatch, Operation: "Edição de Prazo Comercial", Context: "Financeiro / Prazos"},
		ActionSpec{Key: ActionDeletePaymentTerm, Permission: FinanceDelete, RemoteAuthorizations: []string{AuthFinanceTermDelete},
			Collection: CollectionPaymentTerms, Kind: KindDelete, Operation: "Exclusão de Prazo Comercial", Context: "Financeiro / Prazos"},
		ActionSpec{Key: ActionEditFinanceCategory, Permission: FinanceEdit, RemoteAuthorizations: []string{AuthFinanceCategoryEdit},
			Collection: CollectionFinanceCategories, Kind: KindMergePatch, Operation: "Edição de Categoria", Context: "Financeiro / Categorias"},
		ActionSpec{Key: ActionDeleteFinanceCategory, Permission: FinanceDelete, RemoteAuthorizations: []string{AuthFinanceCategoryDelete},
			Collection: CollectionFinanceCategories, Kind: KindDelete, Operation: "Exclusão de Categoria", Context: "Financeiro / Categorias"},

		ActionSpec{Key: ActionEditEntry, Permission: SalesCreate, RemoteAuthorizations: []string{AuthPOSHistoryEdit, AuthFinanceExtractEdit},
			Collection: CollectionFinancials, Kind: KindMergePatch, Operation: "Edição de Lançamento", Context: "PDV / Histórico"},
		ActionSpec{Key: ActionCancelEntry, Permission: SalesCreate, RemoteAuthorizations: []string{AuthPOSHistoryDelete, AuthFinanceExtractDelete},
			Collection: CollectionFinancials, Kind: KindFixedPatch, Operation: "Cancelamento de Lançamento", Context: "PDV / Histórico",
			FixedPatch: json.RawMessage(`{"status":"reversed","is_reversed":true,"liquidation_date":null,"due_date":null}`)},
		ActionSpec{Key: ActionReverseEntry, Permission: SalesCreate, RemoteAuthorizations: []string{AuthPOSHistoryRevert, AuthFinanceTitleReverse},
			Collection: CollectionFinancials, Kind: KindFixedPatch, Operation: "Estorno de Lançamento", Context: "PDV / Histórico",
			FixedPatch: json.RawMessage(`{"status":"pending","liquidation_date":null,"due_date":null,"is_reversed":false,"payment_term_id":null}`)},
		ActionSpec{Key: ActionAdjustOpening, Permission: SalesCreate, RemoteAuthorizations: []string{AuthPOSHistoryEdit},
			Collection: CollectionFinancials, Kind: KindMergePatch, Operation: "Ajuste de Abertura", Context: "PDV / Caixa"},
		ActionSpec{Key: ActionManualEntry, Permission: SalesCreate, RemoteAuthorizations: []string{AuthPOSManualIn, AuthPOSManualOut, AuthFinanceExtractOut},
			Collection: CollectionFinancials, Kind: KindInsert, Operation: "Lançamento Manual", Context: "PDV / Caixa"},
		ActionSpec{Key: ActionCloseCashier, Permission: SalesCloseCashier, RemoteAuthorizations: []string{AuthPOSCloseCashier, AuthFinanceCloseCashier},
			Collection: CollectionCashierSessions, Kind: KindFixedPatch, Operation: "Fechamento de Caixa", Context: "PDV / Caixa",
			FixedPatch: json.RawMessage(`{"closing_authorized":true}`)},
		ActionSpec{Key: ActionEditPOSOperation, Permission: SalesCreate, RemoteAuthorizations: []string{AuthPOSHistoryEdit},
			Collection: CollectionTransactions, Kind: KindMergePatch, Operation: "Edição de Operação PDV", Context: "PDV / Operações"},

		ActionSpec{Key: ActionStockEdit, Permission: StockEdit, RemoteAuthorizations: []string{AuthStockEdit},
			Collection: CollectionMaterials, Kind: KindMergePatch, Operation: "Edição de Material", Context: "Estoque"},
		ActionSpec{Key: ActionStockDelete, Permission: StockDelete, RemoteAuthorizations: []string{AuthStockDelete},
			Collection: CollectionMaterials, Kind: KindDelete, Operation: "Exclusão de Material", Context: "Estoque"},
		ActionSpec{Key: ActionStockAdjust, Permission: StockAdjust, RemoteAuthorizations: []string{AuthStockAdjust},
			Collection: CollectionMaterials, Kind: KindMergePatch, Operation: "Ajuste Rápido de Estoque", Context: "Estoque"},
		ActionSpec{Key: ActionCreateMaterial, Permission: StockCreate,
			Collection: CollectionMaterials, Kind: KindInsert, Operation: "Cadastro de Material", Context: "Estoque"},
	)
}

// Lookup returns the spec registered for key.
func Lookup(key string) (ActionSpec, bool) {
	spec, ok := catalog[key]
	return spec, ok
}

// Catalog returns every registered action ordered by key.
func Catalog() []ActionSpec {
	out := make([]ActionSpec, 0, len(catalog))
	for _, spec := range catalog {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
