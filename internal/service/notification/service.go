package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/TANKominator5/crowdmedics-api/internal/model"
	"github.com/TANKominator5/crowdmedics-api/internal/repository"
	"github.com/TANKominator5/crowdmedics-api/pkg/messaging"
)

// Service queues best-effort admin notifications. Enqueueing only writes a
// row; the dispatcher worker owns delivery and retries, so a dead SMTP
// server can never fail a profile submission.
type Service interface {
	NotifyMedicSubmitted(ctx context.Context, medic *model.Medic) error
}

type service struct {
	repo        repository.NotificationRepository
	broker      messaging.Broker
	adminEmails []string
}

func NewService(repo repository.NotificationRepository, broker messaging.Broker, adminEmails []string) Service {
	return &service{
		repo:        repo,
		broker:      broker,
		adminEmails: adminEmails,
	}
}

func (s *service) NotifyMedicSubmitted(ctx context.Context, medic *model.Medic) error {
	subject := "New medic profile awaiting verification"
	content := fmt.Sprintf(
		"Medic %s (%s) submitted a profile for verification.\nQualification: %s\nServable region: %s\n",
		medic.Name, medic.Email, medic.Qualification, medic.ServableRegion,
	)

	for _, recipient := range s.adminEmails {
		n := &model.Notification{
			Recipient: recipient,
			Subject:   subject,
			Content:   content,
			Status:    model.NotificationStatusPending,
		}
		if err := s.repo.Create(ctx, n); err != nil {
			return fmt.Errorf("failed to queue notification: %w", err)
		}
	}

	// Publish failures are logged, never surfaced: the channel is a
	// convenience for live dashboards, not a delivery guarantee.
	if s.broker != nil {
		if err := s.broker.Publish(ctx, messaging.ChannelMedicSubmitted, messaging.Message{
			Type:    "medic.submitted",
			Payload: map[string]string{"medic_id": medic.ID.String(), "email": medic.Email},
		}); err != nil {
			log.Warn().Err(err).Msg("failed to publish medic.submitted event")
		}
	}

	return nil
}
