package models

// Page — страница приложения, к которой относится разрешение.
type Page string

// Страницы приложения, для которых ведётся каталог разрешений.
const (
	PageDashboard        Page = "dashboard"
	PageEncaissements    Page = "encaissements"
	PageDecaissements    Page = "decaissements"
	PageComptesBancaires Page = "comptes_bancaires"
	PageProjets          Page = "projets"
	PageDettes           Page = "dettes"
	PageUtilisateurs     Page = "utilisateurs"
	PageParametres       Page = "parametres"
)

// Action — действие над страницей.
type Action string

// Действия, на которые выдаются гранты.
const (
	ActionAccess Action = "access"
	ActionAdd    Action = "add"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionExport Action = "export"
)

// Permission — запись каталога разрешений. Каталог создаётся миграциями
// при разворачивании системы и конечными пользователями не изменяется.
type Permission struct {
	ID     int    `json:"id"`
	Page   Page   `json:"page"`
	Action Action `json:"action"`
}

// RolePermission — грант роли на разрешение.
// Уникален по паре (role, permission_id), запись обновляется upsert-ом.
type RolePermission struct {
	Role         Role `json:"role"`
	PermissionID int  `json:"permission_id"`
	Granted      bool `json:"granted"`
}

// UserPermission — персональное переопределение гранта для пользователя.
// При наличии имеет приоритет над RolePermission по тому же разрешению,
// остальные гранты роли не затрагивает.
type UserPermission struct {
	UserUID      string `json:"user_uid"`
	PermissionID int    `json:"permission_id"`
	Granted      bool   `json:"granted"`
}
