package main

import (
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type smsSender interface {
	send(to, body string) error
}

type twilioSender struct {
	client      *twilio.RestClient
	from        string
	countryCode string
}

func newTwilioSender(cfg config) *twilioSender {
	return &twilioSender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		}),
		from:        cfg.TwilioFrom,
		countryCode: cfg.SMSCountryCode,
	}
}

func (s *twilioSender) send(to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(normalizePhone(to, s.countryCode))
	params.SetFrom(s.from)
	params.SetBody(body)

	_, err := s.client.Api.CreateMessage(params)
	return err
}

// normalizePhone turns a local number into E.164 using the default country code.
func normalizePhone(number, countryCode string) string {
	number = strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '(' || r == ')' {
			return -1
		}
		return r
	}, number)

	if strings.HasPrefix(number, "+") {
		return number
	}
	return countryCode + strings.TrimLeft(number, "0")
}
