package models

import "time"

// AccountStatus — статус жизненного цикла аккаунта.
//
// Статус вычисляется лениво при чтении (см. сервис account), фоновых
// переходов нет. Явно статус меняют только административные операции.
type AccountStatus string

const (
	// StatusTrial — аккаунт в пробном периоде.
	StatusTrial AccountStatus = "trial"
	// StatusActive — оплаченный активный аккаунт.
	StatusActive AccountStatus = "active"
	// StatusExpired — пробный период или оплата истекли.
	StatusExpired AccountStatus = "expired"
	// StatusPendingActivation — ожидает подтверждения оплаты.
	StatusPendingActivation AccountStatus = "pending_activation"
)

// Account — биллинговая сущность (тенант), владеющая пользователями,
// тарифным планом и статусом жизненного цикла.
// Поля с датами могут быть nil — это означает отсутствие значения.
type Account struct {
	UID            string        // Уникальный идентификатор аккаунта
	Name           string        // Название организации
	Status         AccountStatus // Сохранённый статус (до ленивого пересчёта)
	PlanID         int           // Идентификатор тарифного плана
	TrialStartDate *time.Time    // Дата начала пробного периода
	TrialEndDate   *time.Time    // Дата окончания пробного периода
	ActivationDate *time.Time    // Дата активации после оплаты
	ValidUntil     *time.Time    // Дата окончания оплаченного периода
}
