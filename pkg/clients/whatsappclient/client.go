package whatsappclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const channelPrefix = "whatsapp:"

// Client sends WhatsApp messages through Twilio
type Client struct {
	rest *twilio.RestClient
	from string
}

// NewClient creates a Twilio-backed client sending from the given WhatsApp-enabled number
func NewClient(accountSID, authToken, fromNumber string) *Client {
	return &Client{
		rest: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from: withPrefix(fromNumber),
	}
}

// Send delivers text to an E.164 number and returns the Twilio message SID
func (c *Client) Send(ctx context.Context, to, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(c.from)
	params.SetTo(withPrefix(to))
	params.SetBody(text)

	resp, err := c.rest.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("failed to send whatsapp message: %w", err)
	}
	if resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}

func withPrefix(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, channelPrefix) {
		return number
	}
	return channelPrefix + number
}
