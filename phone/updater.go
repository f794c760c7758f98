package phone

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Updater points Twilio phone numbers at this deployment's voice webhook.
type Updater struct {
	client *twilio.RestClient
}

// NewUpdater builds an updater with account credentials.
func NewUpdater(accountSID, authToken string) *Updater {
	return &Updater{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
	}
}

// PointAllAt sets every incoming phone number's voice URL to
// <baseURL>/voice and returns how many numbers were updated.
func (u *Updater) PointAllAt(baseURL string) (int, error) {
	voiceURL := strings.TrimRight(baseURL, "/") + "/voice"
	method := "POST"

	numbers, err := u.client.Api.ListIncomingPhoneNumber(&openapi.ListIncomingPhoneNumberParams{})
	if err != nil {
		return 0, fmt.Errorf("listing phone numbers: %w", err)
	}

	updated := 0
	for _, n := range numbers {
		if n.Sid == nil {
			continue
		}
		params := &openapi.UpdateIncomingPhoneNumberParams{}
		params.SetVoiceUrl(voiceURL)
		params.SetVoiceMethod(method)
		if _, err := u.client.Api.UpdateIncomingPhoneNumber(*n.Sid, params); err != nil {
			return updated, fmt.Errorf("updating number %s: %w", *n.Sid, err)
		}

		number := ""
		if n.PhoneNumber != nil {
			number = *n.PhoneNumber
		}
		log.Info().Str("number", number).Str("voice_url", voiceURL).Msg("webhook updated")
		updated++
	}
	return updated, nil
}
