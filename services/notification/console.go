package notifsvc

import (
	"fmt"

	"github.com/tshola/ngoma/core"
)

// consoleService prints notifications instead of delivering them; DEV only.
type consoleService struct {
	prefix string
}

var _ core.NotificationService = (*consoleService)(nil)

func NewConsoleService(appName string) core.NotificationService {
	return &consoleService{prefix: "[" + appName + "] "}
}

func (svc consoleService) Push(notifs ...*core.Notification) {
	for _, n := range notifs {
		target := n.Audience
		if n.TargetKey != "" {
			target += "/" + n.TargetKey
		}
		fmt.Printf("%s-> %s: %s | %s\n", svc.prefix, target, n.Title, n.Body)
	}
}
