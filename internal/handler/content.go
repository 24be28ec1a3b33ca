package handler

import (
	"strconv"

	"github.com/dukerupert/rjweb/internal/store"
	"github.com/dukerupert/rjweb/internal/websocket"
)

// Broadcaster receives admin panel events. *websocket.Hub implements it.
type Broadcaster interface {
	Broadcast(ev websocket.Event)
}

type serviceView struct {
	N     int
	Title string
	Desc  string
	Price string
	Image string
}

func serviceViews(content map[string]string) []serviceView {
	views := make([]serviceView, 0, store.ServiceCount)
	for i := 1; i <= store.ServiceCount; i++ {
		views = append(views, serviceView{
			N:     i,
			Title: content[store.ServiceKey(i, "title")],
			Desc:  content[store.ServiceKey(i, "desc")],
			Price: content[store.ServiceKey(i, "price")],
			Image: content[store.ServiceKey(i, "image")],
		})
	}
	return views
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}
