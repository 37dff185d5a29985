package services

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cuikww/Obis-project/internal/config"
)

func TestMidtransService_IsConfigured(t *testing.T) {
	logger := testLogger()

	unconfigured := NewMidtransService(&config.PaymentConfig{Environment: "sandbox"}, logger)
	assert.False(t, unconfigured.IsConfigured())

	configured := NewMidtransService(&config.PaymentConfig{Environment: "sandbox", ServerKey: "SB-Mid-server-key"}, logger)
	assert.True(t, configured.IsConfigured())
}

func TestMidtransService_BaseURLFallsBackToSandbox(t *testing.T) {
	logger := testLogger()

	service := NewMidtransService(&config.PaymentConfig{Environment: "bogus"}, logger)
	assert.Equal(t, MidtransEnvironmentURLs["sandbox"], service.baseURL())

	production := NewMidtransService(&config.PaymentConfig{Environment: "production"}, logger)
	assert.Equal(t, "https://app.midtrans.com", production.baseURL())
}

func TestVerifySignature(t *testing.T) {
	logger := testLogger()
	serverKey := "SB-Mid-server-key"
	service := NewMidtransService(&config.PaymentConfig{Environment: "sandbox", ServerKey: serverKey}, logger)

	n := &PaymentNotification{
		OrderID:     "order-1",
		StatusCode:  "200",
		GrossAmount: "100000.00",
	}
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	n.SignatureKey = hex.EncodeToString(sum[:])

	assert.True(t, service.VerifySignature(n))

	n.SignatureKey = "tampered"
	assert.False(t, service.VerifySignature(n))
}

func TestCreateTransaction_FailsWithoutServerKey(t *testing.T) {
	logger := testLogger()
	service := NewMidtransService(&config.PaymentConfig{Environment: "sandbox"}, logger)

	_, err := service.CreateTransaction("order-1", 100000, nil)
	assert.ErrorIs(t, err, ErrGateway)
}
