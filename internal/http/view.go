package http

import (
	"sync"

	"friendlychat/backend/internal/domain/chat"
)

// View is the Navigator behind the HTTP surface: the browser reads the
// current route from /v1/view instead of being redirected.
type View struct {
	mu    sync.RWMutex
	route chat.Route
}

func NewView() *View {
	return &View{route: chat.RouteLogin}
}

func (v *View) Navigate(route chat.Route) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.route = route
}

func (v *View) Route() chat.Route {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.route
}
