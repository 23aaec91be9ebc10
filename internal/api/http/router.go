package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"pistachio-backend/internal/security"
)

// NewRouter registers every endpoint under its route name. The names key
// the access rules in config.RouteSecurityConfig.
func NewRouter(h *Handler, tokens security.TokenManager) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestLogger, Recovery, NewAuthMiddleware(tokens).Handler)

	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet).Name("health")

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost).Name("auth.login")
	api.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost).Name("users.create")

	api.HandleFunc("/customers", h.ListCustomers).Methods(http.MethodGet).Name("customers.list")
	api.HandleFunc("/customers", h.CreateCustomer).Methods(http.MethodPost).Name("customers.create")
	api.HandleFunc("/customers/{id:[0-9]+}", h.GetCustomer).Methods(http.MethodGet).Name("customers.get")
	api.HandleFunc("/customers/{id:[0-9]+}", h.UpdateCustomer).Methods(http.MethodPut).Name("customers.update")
	api.HandleFunc("/customers/{id:[0-9]+}", h.DeleteCustomer).Methods(http.MethodDelete).Name("customers.delete")
	api.HandleFunc("/customers/{id:[0-9]+}/account", h.GetCustomerAccount).Methods(http.MethodGet).Name("customers.account")
	api.HandleFunc("/customers/{id:[0-9]+}/opening-balance", h.GetOpeningBalance).Methods(http.MethodGet).Name("customers.opening.get")
	api.HandleFunc("/customers/{id:[0-9]+}/opening-balance", h.AddOpeningBalance).Methods(http.MethodPost).Name("customers.opening.add")
	api.HandleFunc("/customers/{id:[0-9]+}/opening-balance/payments", h.PayOpeningBalance).Methods(http.MethodPost).Name("customers.opening.pay")
	api.HandleFunc("/customers/{id:[0-9]+}/transactions", h.ListTransactions).Methods(http.MethodGet).Name("customers.transactions")

	api.HandleFunc("/transactions/{id:[0-9]+}", h.UpdateTransaction).Methods(http.MethodPut).Name("transactions.update")
	api.HandleFunc("/transactions/{id:[0-9]+}", h.DeleteTransaction).Methods(http.MethodDelete).Name("transactions.delete")

	api.HandleFunc("/orders", h.ListOrders).Methods(http.MethodGet).Name("orders.list")
	api.HandleFunc("/orders", h.CreateOrder).Methods(http.MethodPost).Name("orders.create")
	api.HandleFunc("/orders/{id:[0-9]+}", h.GetOrder).Methods(http.MethodGet).Name("orders.get")
	api.HandleFunc("/orders/{id:[0-9]+}/ship", h.ShipOrder).Methods(http.MethodPost).Name("orders.ship")
	api.HandleFunc("/orders/{id:[0-9]+}/payments", h.PayOrder).Methods(http.MethodPost).Name("orders.pay")
	api.HandleFunc("/dashboard/urgent-orders", h.UrgentOrders).Methods(http.MethodGet).Name("dashboard.urgent")

	api.HandleFunc("/contractors", h.ListContractors).Methods(http.MethodGet).Name("contractors.list")
	api.HandleFunc("/contractors", h.CreateContractor).Methods(http.MethodPost).Name("contractors.create")
	api.HandleFunc("/stock/lots", h.ListLots).Methods(http.MethodGet).Name("stock.lots.list")
	api.HandleFunc("/stock/lots", h.CreateLot).Methods(http.MethodPost).Name("stock.lots.create")
	api.HandleFunc("/stock/movements", h.MoveStock).Methods(http.MethodPost).Name("stock.moves.create")
	api.HandleFunc("/stock/movements/{id:[0-9]+}", h.GetMovement).Methods(http.MethodGet).Name("stock.moves.get")

	return router
}
