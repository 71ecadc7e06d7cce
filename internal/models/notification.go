package models

import "time"

// TrialExpiryNotice — сообщение для очереди уведомлений о приближающемся
// окончании пробного периода пользователя.
type TrialExpiryNotice struct {
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	TrialEndDate time.Time `json:"trial_end_date"`
}
