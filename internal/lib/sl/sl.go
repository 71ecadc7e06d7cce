// Package sl содержит помощники для структурированного логирования через slog.
package sl

import "log/slog"

// Err оборачивает ошибку в атрибут лога с ключом "error", чтобы ошибки
// во всех сервисах логировались единообразно.
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
