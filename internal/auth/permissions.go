package auth

import "workshop-backend/internal/models"

type Permission string

const (
	PermMaterialsRead   Permission = "materials:read"
	PermMaterialsWrite  Permission = "materials:write"
	PermStockWrite      Permission = "stock:write"
	PermStockConsume    Permission = "stock:consume"
	PermProductionRead  Permission = "production:read"
	PermProductionWrite Permission = "production:write"
	PermAuditRead       Permission = "audit:read"
	PermUsersManage     Permission = "users:manage"
	PermReconcile       Permission = "admin:reconcile"
)

var rolePermissions = map[models.UserRole][]Permission{
	models.RoleAdmin: {
		PermMaterialsRead, PermMaterialsWrite, PermStockWrite, PermStockConsume,
		PermProductionRead, PermProductionWrite, PermAuditRead, PermUsersManage, PermReconcile,
	},
	models.RoleManager: {
		PermMaterialsRead, PermMaterialsWrite, PermStockWrite, PermStockConsume,
		PermProductionRead, PermProductionWrite, PermAuditRead,
	},
	models.RoleStaff: {
		PermMaterialsRead, PermStockConsume, PermProductionRead,
	},
}

// Can reports whether role grants perm.
func Can(role models.UserRole, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

func ValidRole(role models.UserRole) bool {
	_, ok := rolePermissions[role]
	return ok
}
