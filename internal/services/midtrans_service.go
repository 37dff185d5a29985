package services

import (
	"bytes"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cuikww/Obis-project/internal/config"
)

// MidtransEnvironmentURLs maps environment names to their Snap API base URLs
var MidtransEnvironmentURLs = map[string]string{
	"sandbox":    "https://app.sandbox.midtrans.com",
	"production": "https://app.midtrans.com",
}

// MidtransService handles payment gateway integration with Midtrans Snap
type MidtransService struct {
	config *config.PaymentConfig
	logger *logrus.Logger
	client *http.Client
}

// SnapTransactionRequest represents the request sent to the Snap API
type SnapTransactionRequest struct {
	TransactionDetails SnapTransactionDetails `json:"transaction_details"`
	CustomerDetails    *SnapCustomerDetails   `json:"customer_details,omitempty"`
}

// SnapTransactionDetails carries the order reference and amount
type SnapTransactionDetails struct {
	OrderID     string  `json:"order_id"`
	GrossAmount float64 `json:"gross_amount"`
}

// SnapCustomerDetails carries optional customer identification
type SnapCustomerDetails struct {
	FirstName string `json:"first_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// SnapTransactionResponse represents the Snap API response
type SnapTransactionResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages,omitempty"`
}

// PaymentNotification is the webhook payload Midtrans posts after any
// transaction status change
type PaymentNotification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	FraudStatus       string `json:"fraud_status"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type"`
	TransactionID     string `json:"transaction_id"`
	TransactionTime   string `json:"transaction_time"`
}

// NewMidtransService creates a new Midtrans service
func NewMidtransService(cfg *config.PaymentConfig, logger *logrus.Logger) *MidtransService {
	return &MidtransService{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured reports whether gateway credentials are present
func (s *MidtransService) IsConfigured() bool {
	return s.config != nil && s.config.ServerKey != ""
}

func (s *MidtransService) baseURL() string {
	if url, ok := MidtransEnvironmentURLs[s.config.Environment]; ok {
		return url
	}
	return MidtransEnvironmentURLs["sandbox"]
}

func (s *MidtransService) authHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(s.config.ServerKey+":"))
}

// CreateTransaction registers an order with the Snap API and returns the
// payment token and redirect URL
func (s *MidtransService) CreateTransaction(orderID string, grossAmount float64, customer *SnapCustomerDetails) (*SnapTransactionResponse, error) {
	if !s.IsConfigured() {
		return nil, fmt.Errorf("%w: midtrans server key not configured", ErrGateway)
	}

	reqBody := SnapTransactionRequest{
		TransactionDetails: SnapTransactionDetails{
			OrderID:     orderID,
			GrossAmount: grossAmount,
		},
		CustomerDetails: customer,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snap request: %w", err)
	}

	url := s.baseURL() + "/snap/v1/transactions"

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build snap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", s.authHeader())

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"amount":   grossAmount,
	}).Info("Creating Snap transaction")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrGateway, err)
	}

	var snapResp SnapTransactionResponse
	if err := json.Unmarshal(body, &snapResp); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %v", ErrGateway, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		s.logger.WithFields(logrus.Fields{
			"order_id":    orderID,
			"status_code": resp.StatusCode,
			"errors":      snapResp.ErrorMessages,
		}).Error("Snap transaction rejected")
		return nil, fmt.Errorf("%w: snap returned status %d: %s",
			ErrGateway, resp.StatusCode, strings.Join(snapResp.ErrorMessages, "; "))
	}

	return &snapResp, nil
}

// VerifySignature checks the webhook signature key. Midtrans computes it as
// sha512(order_id + status_code + gross_amount + server_key).
func (s *MidtransService) VerifySignature(n *PaymentNotification) bool {
	if !s.IsConfigured() {
		return false
	}

	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + s.config.ServerKey))
	return hex.EncodeToString(sum[:]) == n.SignatureKey
}
