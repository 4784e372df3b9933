package delta

// aliases maps historical field spellings onto the canonical snake_case name
// stored in documents.
var aliases = map[string]string{
	"companyId":          "company_id",
	"id_companies":       "company_id",
	"userName":           "user_name",
	"planId":             "plan_id",
	"expiresAt":          "expires_at",
	"createdAt":          "created_at",
	"timestamp":          "created_at",
	"updatedAt":          "updated_at",
	"createdBy":          "created_by",
	"updatedBy":          "updated_by",
	"maxUsers":           "max_users",
	"minStock":           "min_stock",
	"maxStock":           "max_stock",
	"buyPrice":           "buy_price",
	"sellPrice":          "sell_price",
	"showInSale":         "show_in_sale",
	"showInPurchase":     "show_in_purchase",
	"showInSettle":       "show_in_settle",
	"showInBankManual":   "show_in_bank_manual",
	"showInPdvManual":    "show_in_pdv_manual",
	"showInManualPdv":    "show_in_manual_pdv",
	"showInCashierClose": "show_in_cashier_close",
	"showInOpening":      "show_in_opening",
	"showInSales":        "show_in_sales",
	"showInPurchases":    "show_in_purchases",
	"showInLiquidation":  "show_in_liquidation",
	"isDefault":          "is_default",
	"dueDate":            "due_date",
	"liquidationDate":    "liquidation_date",
	"paymentTermId":      "payment_term_id",
	"walletEntry":        "wallet_entry",
	"walletExit":         "wallet_exit",
	"isReconciled":       "is_reconciled",
	"isReversed":         "is_reversed",
	"changeValue":        "change_value",
	"paymentMethod":      "payment_method",
	"materialId":         "material_id",
	"materialName":       "material_name",
}

// CanonicalName returns the stored name for a field spelling.
func CanonicalName(field string) string {
	if canonical, ok := aliases[field]; ok {
		return canonical
	}
	return field
}
