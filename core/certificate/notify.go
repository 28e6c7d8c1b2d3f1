package certificate

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

const issuedTemplate = "certificate_issued"

type issuedMailData struct {
	Name        string
	ProgramName string
	IssuedAt    time.Time
}

// MailNotifier emails freshly issued certificates to users that have an email address.
type MailNotifier struct {
	store   *Store
	mailSvc core.EmailService
}

var _ IssueHook = (*MailNotifier)(nil)

func NewMailNotifier(store *Store, mailSvc core.EmailService) *MailNotifier {
	return &MailNotifier{store: store, mailSvc: mailSvc}
}

func (n *MailNotifier) OnCertificateIssued(ctx context.Context, cert Certificate) error {
	usr, err := n.store.users.GetUserByID(ctx, cert.UserID)
	if err != nil {
		return errors.Wrap(err, "getting certificate user")
	}
	if usr.Email == "" {
		return nil
	}
	progName, certImage, err := n.store.programs.ProgramInfo(ctx, cert.ProgramID)
	if err != nil {
		return errors.Wrap(err, "getting certificate program")
	}

	art, err := n.store.render(ctx, cert, usr, progName, certImage)
	if err != nil {
		return err
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      "Your certificate for " + progName,
		TemplateName: issuedTemplate,
		TemplateData: issuedMailData{
			Name:        usr.FullName(),
			ProgramName: progName,
			IssuedAt:    cert.IssuedAt,
		},
	}
	msg.Attach(art.Content, art.Filename, art.ContentType)
	n.mailSvc.SendMessages(msg)
	return nil
}
