// Package repository реализует хранилище данных на основе PostgreSQL
// для управления аккаунтами, пользователями, каталогом разрешений,
// грантами и подписками.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrDuplicateTrial возвращается при нарушении частичного уникального
// индекса "одна пробная подписка на пользователя". Закрывает гонку
// двух одновременных запусков пробного периода на уровне БД.
var ErrDuplicateTrial = errors.New("trial subscription already exists")

// ErrTrialNotFound возвращается, когда конвертируемая пробная подписка
// не найдена: нет записи с таким ID, она принадлежит другому пользователю
// или уже переведена в оплаченную.
var ErrTrialNotFound = errors.New("trial subscription not found")

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы с доменными сущностями.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных:
// каталог разрешений должен быть создан миграциями.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'permissions'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table permissions missing or query error: %w", err)
	}
	return nil
}
