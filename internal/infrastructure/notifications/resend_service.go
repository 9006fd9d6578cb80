package notifications

import (
	"context"
	"fmt"

	"github.com/resendlabs/resend-go"
	"github.com/sirupsen/logrus"

	"github.com/you/marketauth/domain"
)

// ResendService delivers email through the Resend API.
type ResendService struct {
	client *resend.Client
	from   string
	logger *logrus.Logger
}

func NewResendService(apiKey, from string, logger *logrus.Logger) *ResendService {
	var client *resend.Client
	if apiKey != "" {
		client = resend.NewClient(apiKey)
	}
	return &ResendService{
		client: client,
		from:   from,
		logger: logger,
	}
}

func (r *ResendService) SendEmail(ctx context.Context, to, subject, bodyHTML string) error {
	if r.client == nil {
		r.logger.WithFields(logrus.Fields{"to": to, "subject": subject}).
			Info("email delivery skipped: resend not configured")
		return nil
	}

	params := &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{to},
		Subject: subject,
		Html:    bodyHTML,
	}

	if _, err := r.client.Emails.Send(params); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailure, err)
	}

	return nil
}

// Channels combines the SMS and email providers behind the single
// domain.NotificationService the orchestrator consumes.
type Channels struct {
	*TwilioService
	*ResendService
}

func NewChannels(sms *TwilioService, email *ResendService) domain.NotificationService {
	return &Channels{TwilioService: sms, ResendService: email}
}
