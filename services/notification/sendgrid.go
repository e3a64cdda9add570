package notifsvc

import (
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/tshola/ngoma/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// sendgridService bridges support/admin-audience notifications to the staff
// inbox by email. Member-audience pushes are handed to the device push
// channel, which is out of this service's hands; they are logged only.
type sendgridService struct {
	key          string
	from         *sgmail.Email
	supportInbox *sgmail.Email
	subjPrefix   string
	log          core.Logger
}

var _ core.NotificationService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, log core.Logger) core.NotificationService {
	return &sendgridService{
		key:          conf.SendgridAPIKey,
		from:         sgmail.NewEmail(conf.AppName, conf.DefaultFromEmail),
		supportInbox: sgmail.NewEmail("Support", conf.SupportInboxEmail),
		subjPrefix:   "[" + conf.AppName + "] ",
		log:          log,
	}
}

func (svc *sendgridService) Push(notifs ...*core.Notification) {
	for _, n := range notifs {
		n := n
		go func() {
			if n.Audience == core.AudienceMember {
				svc.log.Debug("notification for member (push channel)", n.TargetKey, n.Title)
				return
			}
			svc.send(n)
		}()
	}
}

func (svc *sendgridService) send(n *core.Notification) {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + n.Title
	p.AddTos(svc.supportInbox)

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", n.Body))

	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)
	if resp, err := sendgrid.API(req); err != nil {
		svc.log.Error("notification: sendgrid delivery failed", err)
	} else if resp.StatusCode >= http.StatusBadRequest {
		svc.log.Error("notification: sendgrid delivery rejected", resp.StatusCode, resp.Body)
	}
}
