package http_api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/aabc-labs/solvo/internal/gateway"
	"github.com/aabc-labs/solvo/internal/models"
	"github.com/aabc-labs/solvo/pkg/validation"
)

// Identity headers. Full authentication is handled by the fronting proxy;
// the gateway only needs a stable user id to scope records.
const (
	headerUserID   = "X-User-ID"
	headerAgentID  = "X-Agent-ID"
	headerThreadID = "X-Thread-ID"
)

// PaymentRequest is the JSON body for executing or preparing a payment.
type PaymentRequest struct {
	ServiceURL         string          `json:"service_url" binding:"required"`
	ServiceName        string          `json:"service_name"`
	ServiceDescription string          `json:"service_description"`
	Amount             string          `json:"amount" binding:"required"`
	Token              string          `json:"token"`
	RecipientAddress   string          `json:"recipient_address" binding:"required"`
	Blockchain         string          `json:"blockchain"`
	UserWalletAddress  string          `json:"user_wallet_address"`
	Metadata           models.JSONMap  `json:"metadata"`
}

// SubmitRequest is the JSON body for submitting a signed transaction.
type SubmitRequest struct {
	SignedTransaction string `json:"signed_transaction" binding:"required"`
}

// ServiceRequest is the JSON body for registering a marketplace service.
type ServiceRequest struct {
	ServiceName        string         `json:"service_name" binding:"required"`
	ServiceDescription string         `json:"service_description"`
	ServiceURL         string         `json:"service_url" binding:"required"`
	Price              string         `json:"price" binding:"required"`
	PriceToken         string         `json:"price_token"`
	PaymentAddress     string         `json:"payment_address" binding:"required"`
	ServiceCategory    string         `json:"service_category"`
	Tags               models.JSONMap `json:"tags"`
}

func (s *HTTPServer) caller(c *gin.Context) (models.Caller, bool) {
	userID := c.GetHeader(headerUserID)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   headerUserID + " header is required",
		})
		return models.Caller{}, false
	}
	return models.Caller{
		UserID:   userID,
		AgentID:  c.GetHeader(headerAgentID),
		ThreadID: c.GetHeader(headerThreadID),
	}, true
}

// challengeFromRequest validates the request body and builds the challenge
// the gateway settles against.
func (s *HTTPServer) challengeFromRequest(c *gin.Context, req *PaymentRequest) (*models.PaymentChallenge, bool) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid payment amount: must be a positive decimal",
		})
		return nil, false
	}

	if err := validation.ValidateAddress(req.RecipientAddress); err != nil {
		s.logger.Debugw("Invalid recipient address", "error", err, "address", req.RecipientAddress)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid recipient address: " + err.Error(),
		})
		return nil, false
	}

	challenge := &models.PaymentChallenge{
		ServiceURL:         req.ServiceURL,
		ServiceName:        req.ServiceName,
		ServiceDescription: req.ServiceDescription,
		Amount:             amount,
		Token:              req.Token,
		RecipientAddress:   req.RecipientAddress,
		Blockchain:         req.Blockchain,
		Metadata:           req.Metadata,
	}
	if challenge.Token == "" {
		challenge.Token = models.DefaultToken
	}
	if challenge.Blockchain == "" {
		challenge.Blockchain = models.DefaultBlockchain
	}
	return challenge, true
}

// writeGatewayError maps gateway failure classes to HTTP status codes.
func (s *HTTPServer) writeGatewayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gateway.ErrTransactionExpired):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"code":    "transaction_expired",
			"error":   "Transaction expired, please refresh and re-sign",
		})
	case errors.Is(err, gateway.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error":   "Payment belongs to a different user",
		})
	case errors.Is(err, gateway.ErrInvalidPaymentState), errors.Is(err, models.ErrStatusConflict):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error":   err.Error(),
		})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Payment not found",
		})
	case errors.Is(err, gateway.ErrSpendCeilingExceeded):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Payment failed: " + err.Error(),
		})
	}
}

// executePayment is a handler for POST /payments (custodial mode).
func (s *HTTPServer) executePayment(c *gin.Context) {
	caller, ok := s.caller(c)
	if !ok {
		return
	}

	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debugw("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	challenge, ok := s.challengeFromRequest(c, &req)
	if !ok {
		return
	}

	receipt, err := s.gateway.ExecutePayment(c.Request.Context(), challenge, caller)
	if err != nil {
		s.logger.Errorw("Payment execution failed", "error", err, "user", caller.UserID)
		s.writeGatewayError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"receipt": receipt,
	})
}

// preparePayment is a handler for POST /payments/prepare (user-wallet mode).
func (s *HTTPServer) preparePayment(c *gin.Context) {
	caller, ok := s.caller(c)
	if !ok {
		return
	}

	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debugw("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	if err := validation.ValidateAddress(req.UserWalletAddress); err != nil {
		s.logger.Debugw("Invalid user wallet address", "error", err, "address", req.UserWalletAddress)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid user wallet address: " + err.Error(),
		})
		return
	}

	challenge, ok := s.challengeFromRequest(c, &req)
	if !ok {
		return
	}

	unsigned, err := s.gateway.PreparePayment(c.Request.Context(), challenge, caller, req.UserWalletAddress)
	if err != nil {
		s.logger.Errorw("Payment preparation failed", "error", err, "user", caller.UserID)
		s.writeGatewayError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"transaction": unsigned,
	})
}

// submitPayment is a handler for POST /payments/:payment_id/submit.
func (s *HTTPServer) submitPayment(c *gin.Context) {
	caller, ok := s.caller(c)
	if !ok {
		return
	}
	paymentID := c.Param("payment_id")

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debugw("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	receipt, err := s.gateway.SubmitSignedPayment(c.Request.Context(), paymentID, req.SignedTransaction, caller.UserID)
	if err != nil {
		s.logger.Errorw("Signed payment submission failed", "error", err, "payment_id", paymentID)
		s.writeGatewayError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"receipt": receipt,
	})
}

// listPayments is a handler for GET /payments.
func (s *HTTPServer) listPayments(c *gin.Context) {
	caller, ok := s.caller(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	payments, err := s.repo.ListPayments(c.Request.Context(), caller.UserID, limit, offset)
	if err != nil {
		s.logger.Errorw("Failed to list payments", "error", err, "user", caller.UserID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to list payments",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"payments": payments,
		"count":    len(payments),
	})
}

// getPayment is a handler for GET /payments/:payment_id.
func (s *HTTPServer) getPayment(c *gin.Context) {
	caller, ok := s.caller(c)
	if !ok {
		return
	}
	paymentID := c.Param("payment_id")

	payment, err := s.repo.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Payment not found"})
		} else {
			s.logger.Errorw("Failed to get payment", "error", err, "payment_id", paymentID)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to get payment"})
		}
		return
	}

	// Payments are visible to their owner only.
	if payment.UserID != caller.UserID {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Payment not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"payment": payment,
	})
}

// verifyPayment is a handler for POST /verify/:tx_signature.
func (s *HTTPServer) verifyPayment(c *gin.Context) {
	signature := c.Param("tx_signature")
	if err := validation.ValidateSignature(signature); err != nil {
		s.logger.Debugw("Invalid transaction signature", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid transaction signature: " + err.Error(),
		})
		return
	}

	verified, err := s.gateway.VerifyPayment(c.Request.Context(), signature)
	if err != nil {
		s.logger.Errorw("Payment verification failed", "error", err, "signature", signature)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Verification failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"tx_signature": signature,
		"verified":     verified,
	})
}

// createService is a handler for POST /services.
func (s *HTTPServer) createService(c *gin.Context) {
	caller, ok := s.caller(c)
	if !ok {
		return
	}

	var req ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Debugw("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body: " + err.Error(),
		})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil || !price.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid price: must be a positive decimal",
		})
		return
	}

	if err := validation.ValidateAddress(req.PaymentAddress); err != nil {
		s.logger.Debugw("Invalid payment address", "error", err, "address", req.PaymentAddress)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid payment address: " + err.Error(),
		})
		return
	}

	priceToken := req.PriceToken
	if priceToken == "" {
		priceToken = models.DefaultToken
	}

	service := &models.Service{
		ProviderID:         caller.UserID,
		AgentID:            caller.AgentID,
		ServiceName:        req.ServiceName,
		ServiceDescription: req.ServiceDescription,
		ServiceURL:         req.ServiceURL,
		Price:              price,
		PriceToken:         priceToken,
		PaymentAddress:     req.PaymentAddress,
		ServiceCategory:    req.ServiceCategory,
		Tags:               req.Tags,
		IsActive:           true,
	}

	if err := s.repo.CreateService(c.Request.Context(), service); err != nil {
		s.logger.Errorw("Failed to register service", "error", err, "provider", caller.UserID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to register service",
		})
		return
	}

	s.logger.Infow("Service registered", "service_id", service.ServiceID, "name", service.ServiceName)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"service": service,
	})
}

// listServices is a handler for GET /services.
func (s *HTTPServer) listServices(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	category := c.Query("category")

	services, err := s.repo.ListServices(c.Request.Context(), category, limit, offset)
	if err != nil {
		s.logger.Errorw("Failed to list services", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to list services",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"services": services,
		"count":    len(services),
	})
}

// getService is a handler for GET /services/:service_id.
func (s *HTTPServer) getService(c *gin.Context) {
	serviceID := c.Param("service_id")

	service, err := s.repo.GetService(c.Request.Context(), serviceID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Service not found"})
		} else {
			s.logger.Errorw("Failed to get service", "error", err, "service_id", serviceID)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to get service"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"service": service,
	})
}

// healthCheck is a handler for GET /health.
func (s *HTTPServer) healthCheck(c *gin.Context) {
	bridgeHealthy := true
	if s.health != nil {
		bridgeHealthy = s.health.HealthCheck(c.Request.Context())
	}

	status := http.StatusOK
	overall := "healthy"
	if !bridgeHealthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status": overall,
		"bridge": bridgeHealthy,
	})
}
