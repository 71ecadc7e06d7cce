package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID          string    // Уникальный идентификатор пользователя
	AccountUID   string    // Аккаунт (тенант), которому принадлежит пользователь
	Email        string    // Электронная почта
	Username     string    // Имя пользователя (уникальное)
	PasswordHash string    // Хэш пароля пользователя
	Role         Role      // Назначенная роль
	CreatedAt    time.Time // Дата регистрации
}
