package models

// Role is the closed set of account roles. Admin-gated operations must
// go through CanManage rather than comparing strings at call sites.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

// CanManage reports whether the role may use admin endpoints
// (product CRUD, all-orders listing, order status updates).
func (r Role) CanManage() bool {
	return r == RoleAdmin
}
