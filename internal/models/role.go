// Package models содержит доменные структуры ядра сервиса:
// роли, каталог разрешений, аккаунты, тарифные планы и подписки.
// Структуры используются в бизнес-логике и при работе с хранилищем.
package models

// Role представляет роль пользователя в системе.
//
// Роли не образуют строгой иерархии: права определяются грантами
// (страница × действие), а не порядком привилегий. Исключение — superadmin,
// который проходит любую проверку без обращения к грантам.
type Role string

const (
	// RoleSuperadmin проходит все проверки прав и квот.
	RoleSuperadmin Role = "superadmin"
	// RoleAdmin — администратор аккаунта, управляет пользователями и грантами.
	RoleAdmin Role = "admin"
	// RoleEditeur — редактор данных.
	RoleEditeur Role = "editeur"
	// RoleCollaborateur — сотрудник с ограниченными правами.
	RoleCollaborateur Role = "collaborateur"
	// RoleUtilisateur — базовая роль, назначается по умолчанию (fail-closed).
	RoleUtilisateur Role = "utilisateur"
)

// DefaultRole — роль, назначаемая при отсутствии записи о роли пользователя.
const DefaultRole = RoleUtilisateur

// knownRoles список всех допустимых ролей.
var knownRoles = []Role{
	RoleSuperadmin,
	RoleAdmin,
	RoleEditeur,
	RoleCollaborateur,
	RoleUtilisateur,
}

// IsValid проверяет, что роль входит в список известных.
func (r Role) IsValid() bool {
	for _, known := range knownRoles {
		if r == known {
			return true
		}
	}
	return false
}
