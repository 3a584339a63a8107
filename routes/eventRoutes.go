package routes

import (
	"net/http"

	controller "github.com/restoflow/orders-backend/controllers"
	"github.com/gorilla/mux"
)

func EventProtectedRoutes(router *mux.Router) {
	router.HandleFunc("/events/orders", controller.OrderEventsFeed).Methods(http.MethodGet)
}
