package entity

// 系统角色
const (
	RoleProjectManager     = "project_manager"
	RoleResourcePlanner    = "resource_planner"
	RoleProcurementOfficer = "procurement_officer"
	RoleServiceProvider    = "service_provider"
	RoleSystemAdmin        = "system_admin"
)

// AllRoles 全部合法角色
var AllRoles = []string{
	RoleProjectManager,
	RoleResourcePlanner,
	RoleProcurementOfficer,
	RoleServiceProvider,
	RoleSystemAdmin,
}
