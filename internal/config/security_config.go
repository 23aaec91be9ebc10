// config/security_config.go
package config

import "pistachio-backend/internal/domain"

// RouteSecurity describes who may call a named route. Public routes skip
// authentication; otherwise the caller's role must be listed.
type RouteSecurity struct {
	Public bool
	Roles  []domain.UserRole
}

var (
	everyone   = []domain.UserRole{domain.UserRoleAdmin, domain.UserRoleAccounting, domain.UserRoleWarehouse}
	accounting = []domain.UserRole{domain.UserRoleAdmin, domain.UserRoleAccounting}
	warehouse  = []domain.UserRole{domain.UserRoleAdmin, domain.UserRoleWarehouse}
)

// RouteSecurityConfig maps route names to their required access
var RouteSecurityConfig = map[string]RouteSecurity{
	// Public
	"health":     {Public: true},
	"auth.login": {Public: true},

	"users.create": {Roles: []domain.UserRole{domain.UserRoleAdmin}},

	// Customers and running accounts
	"customers.list":         {Roles: accounting},
	"customers.create":       {Roles: accounting},
	"customers.get":          {Roles: accounting},
	"customers.update":       {Roles: accounting},
	"customers.delete":       {Roles: accounting},
	"customers.account":      {Roles: accounting},
	"customers.opening.get":  {Roles: accounting},
	"customers.opening.add":  {Roles: accounting},
	"customers.opening.pay":  {Roles: accounting},
	"customers.transactions": {Roles: accounting},
	"transactions.update":    {Roles: accounting},
	"transactions.delete":    {Roles: accounting},

	// Orders
	"orders.list":      {Roles: everyone},
	"orders.get":       {Roles: everyone},
	"orders.create":    {Roles: accounting},
	"orders.ship":      {Roles: warehouse},
	"orders.pay":       {Roles: accounting},
	"dashboard.urgent": {Roles: everyone},

	// Stock
	"contractors.list":   {Roles: warehouse},
	"contractors.create": {Roles: warehouse},
	"stock.lots.list":    {Roles: warehouse},
	"stock.lots.create":  {Roles: warehouse},
	"stock.moves.create": {Roles: warehouse},
	"stock.moves.get":    {Roles: warehouse},
}

// GetRouteSecurity returns the access rule for a named route
func GetRouteSecurity(route string) RouteSecurity {
	if sec, exists := RouteSecurityConfig[route]; exists {
		return sec
	}
	// Unknown routes are admin only
	return RouteSecurity{Roles: []domain.UserRole{domain.UserRoleAdmin}}
}
