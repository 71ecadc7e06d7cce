package models

import "time"

// SubscriptionStatus — статус подписки пользователя.
type SubscriptionStatus string

const (
	// SubscriptionActive — действующая подписка (в том числе пробная).
	SubscriptionActive SubscriptionStatus = "active"
	// SubscriptionExpired — истёкшая подписка.
	SubscriptionExpired SubscriptionStatus = "expired"
	// SubscriptionCancelled — отменённая подписка.
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription представляет подписку пользователя на тарифный план.
// Пробная подписка помечается IsTrial и несёт даты пробного периода;
// при конвертации в оплаченную IsTrial снимается, даты пробного периода
// остаются как след использованного пробного периода.
type Subscription struct {
	ID             int                `json:"id"`
	UserUID        string             `json:"user_uid"`
	PlanID         int                `json:"plan_id"`
	Status         SubscriptionStatus `json:"status"`
	IsTrial        bool               `json:"is_trial"`
	TrialStartDate *time.Time         `json:"trial_start_date,omitempty"`
	TrialEndDate   *time.Time         `json:"trial_end_date,omitempty"`
	StartDate      time.Time          `json:"start_date"`
	EndDate        *time.Time         `json:"end_date,omitempty"`
}

// DummyStartTrial используется для приёма данных из JSON-запроса
// на запуск пробного периода.
type DummyStartTrial struct {
	PlanID int `json:"plan_id" validate:"required,gt=0"` // Тарифный план
}

// DummyActivate используется для приёма данных из JSON-запроса
// на активацию подписки после подтверждения оплаты.
// Дата приходит строкой в формате 02-01-2006 и парсится вручную.
type DummyActivate struct {
	SubscriptionID int    `json:"subscription_id" validate:"required,gt=0"` // Конвертируемая подписка
	EndDate        string `json:"end_date" validate:"required"`             // Дата окончания оплаченного периода
}

// DummyRoleGrant используется для приёма данных из JSON-запроса
// на изменение гранта роли.
type DummyRoleGrant struct {
	Role    string `json:"role" validate:"required"`   // Роль
	Page    string `json:"page" validate:"required"`   // Страница
	Action  string `json:"action" validate:"required"` // Действие
	Granted bool   `json:"granted"`                    // Выдан или отозван
}

// DummyUserGrant используется для приёма данных из JSON-запроса
// на персональное переопределение гранта пользователя.
type DummyUserGrant struct {
	UserUID string `json:"user_uid" validate:"required,uuid"` // Пользователь
	Page    string `json:"page" validate:"required"`          // Страница
	Action  string `json:"action" validate:"required"`        // Действие
	Granted bool   `json:"granted"`                           // Выдан или отозван
}
