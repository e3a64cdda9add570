package notifsvc

import (
	"sync"

	"github.com/tshola/ngoma/core"
)

// DummyService records pushed notifications for tests.
type DummyService struct {
	mu     sync.Mutex
	pushed []core.Notification
}

var _ core.NotificationService = (*DummyService)(nil)

func NewDummyService() *DummyService {
	return &DummyService{}
}

func (svc *DummyService) Push(notifs ...*core.Notification) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	for _, n := range notifs {
		svc.pushed = append(svc.pushed, *n)
	}
}

func (svc *DummyService) Pushed() []core.Notification {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.Notification(nil), svc.pushed...)
}
