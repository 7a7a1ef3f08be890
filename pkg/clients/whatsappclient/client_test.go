package whatsappclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithPrefix(t *testing.T) {
	assert.Equal(t, "whatsapp:+15551234567", withPrefix("+15551234567"))
	assert.Equal(t, "whatsapp:+15551234567", withPrefix(" whatsapp:+15551234567 "))
}

func TestNewClient_PrefixesSender(t *testing.T) {
	c := NewClient("AC123", "token", "+15550000000")

	assert.Equal(t, "whatsapp:+15550000000", c.from)
}
