package shared

// Roles recognised by the application.
const (
	RoleRequestor  = "requestor"
	RoleSuperadmin = "superadmin"
)

// Permissions granted through roles.
const (
	PermPurchaseOrdersCreate = "purchase_orders.create"
	PermPurchaseOrdersView   = "purchase_orders.view"
	PermPurchaseOrdersReview = "purchase_orders.review"
	PermUsersView            = "users.view"
	PermSystemView           = "system.view"
	PermAuditView            = "audit.view"
)

// RolePermissions maps each role to the permissions it grants.
func RolePermissions() map[string][]string {
	return map[string][]string{
		RoleRequestor: {
			PermPurchaseOrdersCreate,
			PermPurchaseOrdersView,
		},
		RoleSuperadmin: {
			PermPurchaseOrdersView,
			PermPurchaseOrdersReview,
			PermUsersView,
			PermSystemView,
			PermAuditView,
		},
	}
}
