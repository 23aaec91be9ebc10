package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/service"
)

// IdempotencyKeyHeader carries the client's retry key for order payments.
const IdempotencyKeyHeader = "Idempotency-Key"

// Services bundles what the handlers delegate to.
type Services struct {
	Auth      service.AuthService
	Customers service.CustomerService
	Orders    service.OrderService
	Ledger    service.LedgerService
	Payments  service.PaymentService
	Accounts  service.AccountService
	Stock     service.StockService
}

type Handler struct {
	svc Services
	now func() time.Time
}

func NewHandler(svc Services) *Handler {
	return &Handler{svc: svc, now: func() time.Time { return time.Now().UTC() }}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(name, "invalid id")
	}
	return id, nil
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Auth

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.svc.Auth.CreateUser(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Customers

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.Customers.ListCustomers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c domain.Customer
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	c.ID = 0
	if err := h.svc.Customers.CreateCustomer(r.Context(), &c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.svc.Customers.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var c domain.Customer
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	c.ID = id
	if err := h.svc.Customers.UpdateCustomer(r.Context(), &c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Customers.DeleteCustomer(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetCustomerAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	account, err := h.svc.Accounts.GetCustomerAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Opening balance and ledger

func (h *Handler) GetOpeningBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	detail, err := h.svc.Ledger.GetOpeningBalanceDetail(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) AddOpeningBalance(w http.ResponseWriter, r *http.Request) {
	h.openingBalance(w, r, h.svc.Ledger.AddOpeningBalance)
}

func (h *Handler) PayOpeningBalance(w http.ResponseWriter, r *http.Request) {
	h.openingBalance(w, r, h.svc.Ledger.PayOpeningBalance)
}

type openingFunc func(ctx context.Context, customerID int64, in service.PaymentInput) (*service.EntryResult, error)

func (h *Handler) openingBalance(w http.ResponseWriter, r *http.Request, apply openingFunc) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := apply(r.Context(), id, req.toInput(idempotencyKey(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, res.Transaction)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := h.svc.Ledger.ListTransactions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transactionUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.svc.Ledger.UpdateTransaction(r.Context(), id, req.toUpdate())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Ledger.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Orders

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var customerID int64
	if raw := r.URL.Query().Get("customerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, r, domain.NewValidationError("customerId", "invalid id"))
			return
		}
		customerID = id
	}
	orders, err := h.svc.Orders.ListOrders(r.Context(), customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]orderView, 0, len(orders))
	for i := range orders {
		views = append(views, newOrderView(&orders[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.svc.Orders.CreateOrder(r.Context(), req.toInput())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newOrderView(order))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.svc.Orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderView(order))
}

// ShipOrder completes an order. An empty body ships it now.
func (h *Handler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req shipRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	at := req.ShippedDate.Time
	if at.IsZero() {
		at = h.now()
	}
	order, err := h.svc.Orders.ShipOrder(r.Context(), id, at)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderView(order))
}

func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Payments.PayOrder(r.Context(), id, req.toInput(idempotencyKey(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (h *Handler) UrgentOrders(w http.ResponseWriter, r *http.Request) {
	ranked, err := h.svc.Orders.UrgentOrders(r.Context(), h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}

func idempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
}

// Contractors and stock

func (h *Handler) ListContractors(w http.ResponseWriter, r *http.Request) {
	contractors, err := h.svc.Customers.ListContractors(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contractors)
}

func (h *Handler) CreateContractor(w http.ResponseWriter, r *http.Request) {
	var c domain.Contractor
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	c.ID = 0
	if err := h.svc.Customers.CreateContractor(r.Context(), &c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) ListLots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.svc.Stock.ListLots(r.Context(), domain.StockStage(r.URL.Query().Get("stage")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lots)
}

func (h *Handler) CreateLot(w http.ResponseWriter, r *http.Request) {
	var req lotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	lot, err := req.toLot()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Stock.CreateLot(r.Context(), lot); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lot)
}

// MoveStock answers with the APPLIED movement record. A failed move is
// reported as an error; its record stays readable under stock.moves.get.
func (h *Handler) MoveStock(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, r, err)
		return
	}
	movement, err := h.svc.Stock.MoveStock(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, movement)
}

func (h *Handler) GetMovement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	movement, err := h.svc.Stock.GetMovement(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, movement)
}
