package enums

// Permission is a named capability checked once per endpoint. Roles map to
// permission sets so handlers never test raw role strings.
type Permission string

const (
	PermManageCatalog Permission = "manage_catalog"
	PermManageUsers   Permission = "manage_users"
	PermManageFinance Permission = "manage_finance"
	PermManageOrders  Permission = "manage_orders"
	PermFulfillOrders Permission = "fulfill_orders"
)

var grantsByRole = map[Role][]Permission{
	RoleHelper:   {PermManageCatalog, PermManageOrders, PermManageFinance},
	RoleAdmin:    {PermManageCatalog, PermManageUsers, PermManageFinance, PermManageOrders, PermFulfillOrders},
	RoleDelivery: {PermFulfillOrders},
}

// HasPermission reports whether the role is granted the capability.
func (r Role) HasPermission(p Permission) bool {
	for _, granted := range grantsByRole[r] {
		if granted == p {
			return true
		}
	}
	return false
}
