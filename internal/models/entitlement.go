package models

// TrialUrgency — степень срочности уведомления об окончании пробного периода.
type TrialUrgency string

const (
	// UrgencyNormal — до конца пробного периода больше трёх дней.
	UrgencyNormal TrialUrgency = "normal"
	// UrgencyUrgent — осталось от одного до трёх дней.
	UrgencyUrgent TrialUrgency = "urgent"
	// UrgencyExpired — пробный период закончился.
	UrgencyExpired TrialUrgency = "expired"
)

// TrialState — вычисленное состояние пробного периода.
//
// Истечение выражается через DaysLeft == 0 и Urgency == expired,
// а не через сброс даты: IsTrialActive остаётся true, пока дата задана.
type TrialState struct {
	IsTrialActive bool         `json:"is_trial_active"`
	DaysLeft      int          `json:"days_left"`
	Urgency       TrialUrgency `json:"urgency,omitempty"`
}

// EntitlementSnapshot — согласованный снимок прав пользователя,
// вычисленный резолвером по записям ролей, грантов и квотам плана.
//
// Проверка конкретного разрешения выполняется методом HasPermission,
// а не предвычисленной матрицей страниц × действий.
type EntitlementSnapshot struct {
	Role         Role `json:"role"`
	IsAdmin      bool `json:"is_admin"`
	IsSuperAdmin bool `json:"is_superadmin"`
	MaxUsers     int  `json:"max_users"`
	CurrentUsers int  `json:"current_users"`
	CanAddUsers  bool `json:"can_add_users"`

	permissionIDs map[permissionKey]int
	roleGrants    map[int]bool
	userOverrides map[int]bool
}

type permissionKey struct {
	page   Page
	action Action
}

// NewEntitlementSnapshot собирает снимок с индексами грантов для
// последующих вызовов HasPermission. Используется резолвером.
func NewEntitlementSnapshot(role Role, maxUsers, currentUsers int, canAddUsers bool,
	catalog []Permission, roleGrants []RolePermission, overrides []UserPermission) EntitlementSnapshot {
	snap := EntitlementSnapshot{
		Role:          role,
		IsAdmin:       role == RoleAdmin,
		IsSuperAdmin:  role == RoleSuperadmin,
		MaxUsers:      maxUsers,
		CurrentUsers:  currentUsers,
		CanAddUsers:   canAddUsers,
		permissionIDs: make(map[permissionKey]int, len(catalog)),
		roleGrants:    make(map[int]bool, len(roleGrants)),
		userOverrides: make(map[int]bool, len(overrides)),
	}
	for _, p := range catalog {
		snap.permissionIDs[permissionKey{p.Page, p.Action}] = p.ID
	}
	for _, g := range roleGrants {
		snap.roleGrants[g.PermissionID] = g.Granted
	}
	for _, o := range overrides {
		snap.userOverrides[o.PermissionID] = o.Granted
	}
	return snap
}

// HasPermission проверяет право на действие над страницей.
//
// Порядок: superadmin — всегда true; персональное переопределение;
// грант роли; иначе false (неизвестное разрешение — отказ, fail-closed).
func (s EntitlementSnapshot) HasPermission(page Page, action Action) bool {
	if s.IsSuperAdmin {
		return true
	}
	id, ok := s.permissionIDs[permissionKey{page, action}]
	if !ok {
		return false
	}
	if granted, ok := s.userOverrides[id]; ok {
		return granted
	}
	if granted, ok := s.roleGrants[id]; ok {
		return granted
	}
	return false
}
