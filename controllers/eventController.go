package controller

import (
	"encoding/json"
	"fmt"
	"net/http"

	middleware "github.com/restoflow/orders-backend/middlewares"
	"github.com/restoflow/orders-backend/services"
)

var eventFeed = services.NewEventFeedService(orderRepo)

// OrderEventsFeed streams order changes to a display client as server-sent
// events. One polling loop runs per connection; it is torn down when the
// client goes away.
func OrderEventsFeed(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"success": false, "message": "Streaming unsupported"}`, http.StatusInternalServerError)
		return
	}

	_, _, orgID := middleware.GetUserFromContext(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := eventFeed.Subscribe(r.Context(), orgID)
	for event := range events {
		encoded, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", encoded)
		flusher.Flush()
	}
}
