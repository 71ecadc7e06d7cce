package models

// Plan — тарифный план, определяющий квоты аккаунта и доступность
// пробного периода.
//
// TrialDays хранится и валидируется, но фактическая длина пробного периода
// задаётся константой в сервисе trial — см. trial.TrialLengthDays.
type Plan struct {
	ID                      int     `json:"id"`
	Name                    string  `json:"name"`
	MaxUsers                int     `json:"max_users"`
	MaxProjects             int     `json:"max_projects"`
	MaxTransactionsPerMonth int     `json:"max_transactions_per_month"`
	MaxBankAccounts         int     `json:"max_bank_accounts"`
	TrialEnabled            bool    `json:"trial_enabled"`
	TrialDays               int     `json:"trial_days"` // 0 — пробный период не настроен
	PriceMonthly            float64 `json:"price_monthly"`
}
