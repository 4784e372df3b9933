// Package permissions maps operational profiles to standing permissions and
// remote authorizations, and decides per action whether an operator mutates
// directly or must go through dual control.
package permissions

// Standing permissions. Values are the identifiers stored on user records.
const (
	Dashboard = "DASHBOARD OPERACIONAL"

	FinanceView      = "FINANCEIRO_VISUALIZAR"
	FinanceCreate    = "FINANCEIRO_CRIAR"
	FinanceEdit      = "FINANCEIRO_EDITAR"
	FinanceDelete    = "FINANCEIRO_EXCLUIR"
	FinanceLiquidate = "FINANCEIRO_LIQUIDAR"
	FinanceExtract   = "FINANCEIRO_EXTRATO"
	FinanceAudit     = "FINANCEIRO_AUDITORIA_TURNOS"

	PurchasesView   = "COMPRAS_VISUALIZAR"
	PurchasesCreate = "COMPRAS_CRIAR"
	PurchasesEdit   = "COMPRAS_EDITAR"
	PurchasesDelete = "COMPRAS_EXCLUIR"

	SalesView         = "VENDAS_VISUALIZAR"
	SalesCreate       = "VENDAS_CRIAR"
	SalesCloseCashier = "VENDAS_FECHAR_CAIXA"

	StockView   = "ESTOQUE_VISUALIZAR"
	StockCreate = "ESTOQUE_CRIAR"
	StockEdit   = "ESTOQUE_EDITAR"
	StockDelete = "ESTOQUE_EXCLUIR"
	StockAdjust = "ESTOQUE_AJUSTE_RAPIDO"

	PartnersView   = "PARCEIROS_VISUALIZAR"
	PartnersCreate = "PARCEIROS_CRIAR"
	PartnersEdit   = "PARCEIROS_EDITAR"
	PartnersDelete = "PARCEIROS_EXCLUIR"

	ReportsView        = "RELATORIOS_VISUALIZAR"
	ReportsGeneral     = "RELATORIOS_EXTRATO_GERAL"
	ReportsReceivables = "RELATORIOS_CONTAS_RECEBER"
	ReportsPayables    = "RELATORIOS_CONTAS_PAGAR"
	ReportsStock       = "RELATORIOS_SALDO_ESTOQUE"
	ReportsPartners    = "RELATORIOS_MOV_PARCEIROS"
	ReportsAudit       = "RELATORIOS_AUDITORIA_LOGS"

	TeamView   = "EQUIPE_VISUALIZAR"
	TeamInvite = "EQUIPE_CONVIDAR"
	TeamEdit   = "EQUIPE_EDITAR"
	TeamDelete = "EQUIPE_EXCLUIR"

	SupportView           = "SUPORTE_VISUALIZAR"
	SupportHelpChannels   = "SUPORTE_CANAIS_AJUDA"
	SupportSecurityBackup = "SUPORTE_SEGURANCA_BACKUP"

	SaaSDashboard = "DASHBOARD SAAS MASTER"
	SaaSCompanies = "GESTÃO DE EMPRESAS"
	SaaSPlans     = "GESTÃO DE PLANOS"

	// ActionEdit lets an identity approve or deny authorization requests.
	ActionEdit = "ACTION_EDIT"
)

// Remote authorizations: gated actions an operator may request.
const (
	AuthStockEdit   = "AUTH_ESTOQUE_EDIT"
	AuthStockDelete = "AUTH_ESTOQUE_DELETE"
	AuthStockAdjust = "AUTH_ESTOQUE_ADJUST"

	AuthPartnersEdit   = "AUTH_PARTNERS_EDIT"
	AuthPartnersDelete = "AUTH_PARTNERS_DELETE"

	AuthTeamsEdit   = "AUTH_TEAMS_EDIT"
	AuthTeamsDelete = "AUTH_TEAMS_DELETE"

	AuthBanksEdit   = "AUTH_BANKS_EDIT"
	AuthBanksDelete = "AUTH_BANKS_DELETE"

	AuthFinanceCategoryEdit   = "AUTH_FINANCE_CATEGORY_EDIT"
	AuthFinanceCategoryDelete = "AUTH_FINANCE_CATEGORY_DELETE"
	AuthFinanceTermEdit       = "AUTH_FINANCE_TERM_EDIT"
	AuthFinanceTermDelete     = "AUTH_FINANCE_TERM_DELETE"
	AuthFinanceTitleEdit      = "AUTH_FINANCE_TITLE_EDIT"
	AuthFinanceTitleDelete    = "AUTH_FINANCE_TITLE_DELETE"
	AuthFinanceTitleReverse   = "AUTH_FINANCE_TITLE_REVERSE"
	AuthFinanceCloseCashier   = "AUTH_FINANCE_CLOSE_CASHIER"
	AuthFinanceAuditReverse   = "AUTH_FINANCE_AUDIT_REVERSE"
	AuthFinanceExtractOut     = "AUTH_FINANCE_EXTRACT_MANUAL_OUT"
	AuthFinanceExtractDelete  = "AUTH_FINANCE_EXTRACT_DELETE"
	AuthFinanceExtractEdit    = "AUTH_FINANCE_EXTRACT_EDIT"

	AuthPOSManualIn      = "AUTH_POS_MANUAL_IN"
	AuthPOSManualOut     = "AUTH_POS_MANUAL_OUT"
	AuthPOSHistoryEdit   = "AUTH_POS_HISTORY_EDIT"
	AuthPOSHistoryDelete = "AUTH_POS_HISTORY_DELETE"
	AuthPOSHistoryRevert = "AUTH_POS_HISTORY_REVERSE"
	AuthPOSCloseCashier  = "AUTH_POS_CLOSE_CASHIER"

	AuthBackupRestore = "AUTH_BACKUP_RESTORE"
)

// Operational profiles.
const (
	ProfileVendedor   = "Vendedor"
	ProfileComprador  = "Comprador"
	ProfileFinanceiro = "Financeiro"
	ProfileEstoque    = "Estoque"
	ProfileGerente    = "Gerente"
	ProfileMaster     = "Master"
)

var allPermissions = []string{
	Dashboard,
	FinanceView, FinanceCreate, FinanceEdit, FinanceDelete, FinanceLiquidate, FinanceExtract, FinanceAudit,
	PurchasesView, PurchasesCreate, PurchasesEdit, PurchasesDelete,
	SalesView, SalesCreate, SalesCloseCashier,
	StockView, StockCreate, StockEdit, StockDelete, StockAdjust,
	PartnersView, PartnersCreate, PartnersEdit, PartnersDelete,
	ReportsView, ReportsGeneral, ReportsReceivables, ReportsPayables, ReportsStock, ReportsPartners, ReportsAudit,
	TeamView, TeamInvite, TeamEdit, TeamDelete,
	SupportView, SupportHelpChannels, SupportSecurityBackup,
	SaaSDashboard, SaaSCompanies, SaaSPlans,
	ActionEdit,
}

var allRemoteAuthorizations = []string{
	AuthStockEdit, AuthStockDelete, AuthStockAdjust,
	AuthPartnersEdit, AuthPartnersDelete,
	AuthTeamsEdit, AuthTeamsDelete,
	AuthBanksEdit, AuthBanksDelete,
	AuthFinanceCategoryEdit, AuthFinanceCategoryDelete,
	AuthFinanceTermEdit, AuthFinanceTermDelete,
	AuthFinanceTitleEdit, AuthFinanceTitleDelete, AuthFinanceTitleReverse,
	AuthFinanceCloseCashier, AuthFinanceAuditReverse,
	AuthFinanceExtractOut, AuthFinanceExtractDelete, AuthFinanceExtractEdit,
	AuthPOSManualIn, AuthPOSManualOut,
	AuthPOSHistoryEdit, AuthPOSHistoryDelete, AuthPOSHistoryRevert, AuthPOSCloseCashier,
	AuthBackupRestore,
}

// AllPermissions returns every known permission.
func AllPermissions() []string {
	return append([]string(nil), allPermissions...)
}

// AllRemoteAuthorizations returns every known remote authorization.
func AllRemoteAuthorizations() []string {
	return append([]string(nil), allRemoteAuthorizations...)
}

// Profiles lists the known operational profiles.
func Profiles() []string {
	return []string{ProfileVendedor, ProfileComprador, ProfileFinanceiro, ProfileEstoque, ProfileGerente, ProfileMaster}
}

type grants struct {
	permissions          []string
	remoteAuthorizations []string
}

var profileGrants = map[string]grants{
	ProfileVendedor: {
		permissions: []string{Dashboard, SalesView, SalesCreate, PartnersView, PartnersCreate, StockView},
		remoteAuthorizations: []string{
			AuthPartnersEdit,
			AuthPOSManualIn, AuthPOSManualOut,
			AuthPOSHistoryEdit, AuthPOSHistoryDelete, AuthPOSHistoryRevert,
			AuthPOSCloseCashier,
		},
	},
	ProfileComprador: {
		permissions:          []string{Dashboard, PurchasesView, PurchasesCreate, PartnersView, PartnersCreate, StockView},
		remoteAuthorizations: []string{AuthPartnersEdit, AuthPartnersDelete, AuthStockAdjust},
	},
	ProfileFinanceiro: {
		permissions: []string{Dashboard, FinanceView, FinanceCreate, FinanceEdit, FinanceLiquidate, FinanceExtract, ReportsView, PartnersView},
		remoteAuthorizations: []string{
			AuthBanksEdit, AuthBanksDelete,
			AuthFinanceCategoryEdit, AuthFinanceCategoryDelete,
			AuthFinanceTermEdit, AuthFinanceTermDelete,
			AuthFinanceTitleEdit, AuthFinanceTitleDelete, AuthFinanceTitleReverse,
			AuthFinanceCloseCashier, AuthFinanceAuditReverse,
			AuthFinanceExtractOut, AuthFinanceExtractDelete, AuthFinanceExtractEdit,
		},
	},
	// Estoque edits stock through dual control: it holds the base edit
	// permission but no standing edit authorization.
	ProfileEstoque: {
		permissions:          []string{Dashboard, StockView, StockCreate, StockEdit, StockAdjust, ReportsView},
		remoteAuthorizations: []string{AuthStockDelete, AuthStockAdjust},
	},
	ProfileGerente: {
		permissions: []string{
			Dashboard, ReportsView, TeamView, TeamInvite, SupportView,
			FinanceView, FinanceCreate, FinanceEdit, FinanceDelete, FinanceLiquidate, FinanceExtract,
			PurchasesView, PurchasesCreate, PurchasesEdit, PurchasesDelete,
			SalesView, SalesCreate, SalesCloseCashier,
			StockView, StockCreate, StockEdit, StockDelete, StockAdjust,
			PartnersView, PartnersCreate, PartnersEdit, PartnersDelete,
			TeamEdit, TeamDelete,
			ActionEdit,
		},
		remoteAuthorizations: without(allRemoteAuthorizations, AuthBackupRestore),
	},
	ProfileMaster: {
		permissions:          allPermissions,
		remoteAuthorizations: allRemoteAuthorizations,
	},
}

func without(set []string, drop ...string) []string {
	out := make([]string, 0, len(set))
	for _, v := range set {
		skip := false
		for _, d := range drop {
			if v == d {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, v)
		}
	}
	return out
}
