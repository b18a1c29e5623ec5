// Package notifications turns committed status-change events into email to
// the affected company's members. Delivery is best effort: a failure is
// logged and never reaches the workflow that produced the event.
package notifications

import (
	"context"
	"fmt"

	"github.com/qualitrace/qualitrace/internal/events"
	"github.com/qualitrace/qualitrace/internal/providers/email"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Subscriber struct {
	db     *gorm.DB
	log    *zap.Logger
	mailer email.Provider
}

func NewSubscriber(db *gorm.DB, log *zap.Logger, mailer email.Provider) *Subscriber {
	return &Subscriber{
		db:     db,
		log:    log.Named("notifications"),
		mailer: mailer,
	}
}

// Register attaches the subscriber to every workflow topic.
func (s *Subscriber) Register(bus *events.Bus) {
	for _, topic := range []string{
		events.TopicProjectStatusChanged,
		events.TopicChangeRequestStatusChanged,
		events.TopicDocumentStatusChanged,
		events.TopicRiskStatusChanged,
	} {
		bus.Subscribe(topic, s.handle)
	}
}

func (s *Subscriber) handle(ctx context.Context, event events.StatusChangeEvent) {
	recipients, err := s.companyRecipients(ctx, event)
	if err != nil {
		s.log.Warn("failed to resolve notification recipients",
			zap.String("topic", event.Topic),
			zap.Error(err),
		)
		return
	}
	if len(recipients) == 0 {
		return
	}

	subject := fmt.Sprintf("%s moved to %s", event.EntityType, event.To)
	body := fmt.Sprintf(
		"<p>%s <code>%s</code> changed status from <b>%s</b> to <b>%s</b>.</p>",
		event.EntityType, event.EntityID.String(), event.From, event.To,
	)
	if err := s.mailer.Send(ctx, recipients, subject, body); err != nil {
		s.log.Warn("failed to send status notification",
			zap.String("topic", event.Topic),
			zap.Error(err),
		)
	}
}

func (s *Subscriber) companyRecipients(ctx context.Context, event events.StatusChangeEvent) ([]string, error) {
	var emails []string
	err := s.db.WithContext(ctx).Raw(
		`SELECT u.email
		 FROM users u
		 JOIN user_company_memberships m ON m.user_id = u.id
		 WHERE m.company_id = ? AND m.role IN ('owner', 'admin', 'qa_approver')`,
		event.CompanyID,
	).Scan(&emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}
