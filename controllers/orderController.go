package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	delivery "github.com/restoflow/orders-backend/gateways/delivery"
	payment "github.com/restoflow/orders-backend/gateways/payment"
	helper "github.com/restoflow/orders-backend/helper"
	middleware "github.com/restoflow/orders-backend/middlewares"
	"github.com/restoflow/orders-backend/models"
	"github.com/restoflow/orders-backend/repository"
	"github.com/restoflow/orders-backend/services"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate = validator.New()

var (
	orderRepo   = repository.NewOrderRepository()
	paymentRepo = repository.NewPaymentRepository(orderRepo)
	configRepo  = repository.NewConfigRepository(helper.CredentialKey())

	mercadoPagoClient = payment.NewMercadoPagoClient()

	statusService = services.NewOrderStatusService(orderRepo)
	dispatcher    = services.NewDeliverySyncService(configRepo,
		delivery.NewUberEatsClient(), delivery.NewRappiClient(), delivery.NewWhatsAppClient())
)

// dispatchSync fires the background propagation of a status change to the
// order's originating platform. Internal sources no-op inside the dispatcher.
func dispatchSync(order *models.Order, estimatedMinutes int) {
	if !order.IsExternalSource() {
		return
	}
	dispatcher.Dispatch(services.SyncParams{
		OrderID:          order.Order_id,
		OrganizationID:   order.Organization_id,
		Source:           order.Source,
		ExternalOrderID:  order.External_order_id,
		NewStatus:        order.Status,
		CustomerPhone:    order.Customer_phone,
		EstimatedMinutes: estimatedMinutes,
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeTransitionError maps state-machine errors onto the API contract.
func writeTransitionError(w http.ResponseWriter, err error) {
	var invalid *models.InvalidTransitionError
	switch {
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, models.ErrOrderNotFound), errors.Is(err, models.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrStatusConflict):
		writeError(w, http.StatusConflict, "order changed concurrently, retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// CreateOrder registers a new internal order (web, QR table or POS). Orders
// from delivery platforms are created by their webhook instead.
func CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
	defer cancel()

	_, _, orgID := middleware.GetUserFromContext(r)

	var order models.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if validationErr := validate.StructPartial(order, "Source", "Type", "Items"); validationErr != nil {
		writeError(w, http.StatusBadRequest, validationErr.Error())
		return
	}

	if order.IsExternalSource() {
		writeError(w, http.StatusBadRequest, "external orders are created by their platform webhook")
		return
	}

	now := time.Now()
	order.ID = primitive.NewObjectID()
	order.Order_id = uuid.NewString()
	order.Organization_id = orgID
	order.Status = models.StatusPending
	order.Payment_status = models.PaymentPending
	order.Created_at = now
	order.Updated_at = now
	for i := range order.Items {
		order.Items[i].Item_id = uuid.NewString()
		order.Items[i].Modifiers.Bumped = false
	}

	if err := orderRepo.InsertOrder(ctx, &order); err != nil {
		writeError(w, http.StatusInternalServerError, "order creation failed")
		return
	}

	data := map[string]interface{}{"order": order}

	// Hosted checkout is best effort: the order exists either way and the
	// webhook reconciles the payment later.
	if r.URL.Query().Get("checkout") == models.MethodMercadoPago {
		if checkoutURL := createCheckout(ctx, &order); checkoutURL != "" {
			data["checkout_url"] = checkoutURL
		}
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Order created successfully",
		"data":    data,
	})
}

func createCheckout(ctx context.Context, order *models.Order) string {
	access, err := configRepo.GetPaymentConfig(ctx, order.Organization_id, models.MethodMercadoPago)
	if err != nil {
		log.Printf("[orders] order %s: no mercadopago config: %v", order.Order_id, err)
		return ""
	}

	preference, err := mercadoPagoClient.CreatePreference(ctx, *access, order)
	if err != nil {
		log.Printf("[orders] order %s: checkout preference: %v", order.Order_id, err)
		return ""
	}

	var total float64
	for _, item := range order.Items {
		total += item.Unit_price * float64(item.Quantity)
	}
	pending := &models.Payment{
		ID:                 primitive.NewObjectID(),
		Payment_id:         uuid.NewString(),
		Order_id:           order.Order_id,
		Organization_id:    order.Organization_id,
		Amount:             total,
		Method:             models.MethodMercadoPago,
		Status:             models.PaymentPending,
		External_reference: preference.ID,
		Created_at:         time.Now(),
		Updated_at:         time.Now(),
	}
	if err := paymentRepo.InsertPayment(ctx, pending); err != nil {
		log.Printf("[orders] order %s: recording pending payment: %v", order.Order_id, err)
	}
	return preference.CheckoutURL
}

// GetOrders lists the caller organization's orders with pagination.
func GetOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
	defer cancel()

	_, _, orgID := middleware.GetUserFromContext(r)

	recordPerPage, err := strconv.Atoi(r.URL.Query().Get("recordPerPage"))
	if err != nil || recordPerPage < 1 {
		recordPerPage = 10
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	orders, total, err := orderRepo.ListOrders(ctx, orgID, page, recordPerPage)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "error retrieving orders")
		return
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Orders retrieved successfully",
		"data":    orders,
		"pagination": map[string]interface{}{
			"current_page":     page,
			"records_per_page": recordPerPage,
			"total_orders":     total,
			"total_pages":      (total + int64(recordPerPage) - 1) / int64(recordPerPage),
		},
	})
}

func GetOrderById(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
	defer cancel()

	_, _, orgID := middleware.GetUserFromContext(r)

	orderId := mux.Vars(r)["order_id"]
	if _, err := uuid.Parse(orderId); err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := orderRepo.GetOrder(ctx, orgID, orderId)
	if errors.Is(err, models.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "error retrieving order")
		return
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Order retrieved successfully",
		"data":    order,
	})
}

// UpdateOrderStatus applies one state-machine transition. The state machine is
// the only writer of order status; this handler never touches it directly.
func UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
	defer cancel()

	_, _, orgID := middleware.GetUserFromContext(r)
	orderId := mux.Vars(r)["order_id"]

	var requestBody struct {
		Status           string `json:"status" validate:"required"`
		EstimatedMinutes int    `json:"estimated_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !models.IsValidStatus(requestBody.Status) {
		writeError(w, http.StatusBadRequest, "invalid order status")
		return
	}

	order, err := statusService.Transition(ctx, orgID, orderId, requestBody.Status)
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	dispatchSync(order, requestBody.EstimatedMinutes)

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Order status updated successfully",
		"data":    order,
	})
}

// BumpOrderItem marks one item as prepared and returns the updated item. When
// the bump was the last one pending, the order auto-advances to ready and the
// originating platform is informed.
func BumpOrderItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
	defer cancel()

	_, _, orgID := middleware.GetUserFromContext(r)
	vars := mux.Vars(r)
	orderId := vars["order_id"]
	itemId := vars["item_id"]

	order, becameReady, err := statusService.BumpItem(ctx, orgID, orderId, itemId)
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	if becameReady {
		dispatchSync(order, 0)
	}

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Item bumped successfully",
		"data":    order.FindItem(itemId),
	})
}

// CancelOrder cancels an order, keeping the reason in its notes.
func CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
	defer cancel()

	_, _, orgID := middleware.GetUserFromContext(r)
	orderId := mux.Vars(r)["order_id"]

	var requestBody struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		// A missing or empty body just means no reason was given.
		_ = json.NewDecoder(r.Body).Decode(&requestBody)
	}

	order, err := statusService.Cancel(ctx, orgID, orderId, requestBody.Reason)
	if err != nil {
		writeTransitionError(w, err)
		return
	}

	dispatchSync(order, 0)

	writeJSON(w, map[string]interface{}{
		"success": true,
		"message": "Order cancelled successfully",
		"data":    order,
	})
}
