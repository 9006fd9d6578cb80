package notifications

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/you/marketauth/domain"
)

// TwilioService delivers SMS through Twilio. Email is handled by the Resend
// service; both are combined by NewChannels.
type TwilioService struct {
	client     *twilio.RestClient
	fromNumber string
	logger     *logrus.Logger
}

func NewTwilioService(accountSID, authToken, fromNumber string, logger *logrus.Logger) *TwilioService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioService{
		client:     client,
		fromNumber: fromNumber,
		logger:     logger,
	}
}

// SendSMS sends a text message. When no sender number is configured the
// message is logged instead, which keeps local development working without
// Twilio credentials.
func (t *TwilioService) SendSMS(ctx context.Context, to, message string) error {
	if t.fromNumber == "" {
		t.logger.WithField("to", to).Info("sms delivery skipped: twilio not configured")
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	if _, err := t.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailure, err)
	}

	return nil
}
