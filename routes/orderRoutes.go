package routes

import (
	"net/http"

	controller "github.com/restoflow/orders-backend/controllers"
	"github.com/gorilla/mux"
)

func OrderProtectedRoutes(router *mux.Router) {

	router.HandleFunc("/orders", controller.GetOrders).Methods(http.MethodGet)
	router.HandleFunc("/orders", controller.CreateOrder).Methods(http.MethodPost)

	router.HandleFunc("/orders/{order_id}", controller.GetOrderById).Methods(http.MethodGet)
	router.HandleFunc("/orders/{order_id}/status", controller.UpdateOrderStatus).Methods(http.MethodPatch)
	router.HandleFunc("/orders/{order_id}/cancel", controller.CancelOrder).Methods(http.MethodPost)
	router.HandleFunc("/orders/{order_id}/items/{item_id}/bump", controller.BumpOrderItem).Methods(http.MethodPost)
}
