package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stylisthq/stylist-server/internal/config"
	"github.com/stylisthq/stylist-server/internal/entitlement"
	"github.com/stylisthq/stylist-server/internal/models"
	"github.com/stylisthq/stylist-server/internal/payment"
)

// PaymentHandler handles the premium upgrade purchase flow.
type PaymentHandler struct {
	db       *gorm.DB
	gateway  payment.Gateway
	cfg      config.PaymentConfig
	resolver *entitlement.Resolver
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(db *gorm.DB, gateway payment.Gateway, cfg config.PaymentConfig, resolver *entitlement.Resolver) *PaymentHandler {
	return &PaymentHandler{db: db, gateway: gateway, cfg: cfg, resolver: resolver}
}

// paymentResponse is the payment shape returned to clients.
type paymentResponse struct {
	ID          string     `json:"id"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	RedirectURL string     `json:"redirect_url,omitempty"`
	Status      string     `json:"status"`
	CheckedAt   *time.Time `json:"checked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func statusLabel(status models.PaymentStatus) string {
	switch status {
	case models.PaymentStatusPending:
		return "pending"
	case models.PaymentStatusPaid:
		return "paid"
	case models.PaymentStatusUnpaid:
		return "unpaid"
	default:
		return "unknown"
	}
}

func toPaymentResponse(p models.Payment) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		RedirectURL: p.RedirectURL,
		Status:      statusLabel(p.Status),
		CheckedAt:   p.CheckedAt,
		CreatedAt:   p.CreatedAt,
	}
}

// Create initiates a redirect payment. At most one pending payment may exist
// per user; a second attempt answers 409 with the existing payment.
func (h *PaymentHandler) Create(c *gin.Context) {
	user := getUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if user.Premium {
		c.JSON(http.StatusConflict, gin.H{"error": "already premium"})
		return
	}

	var existing models.Payment
	errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ? AND status = ?", user.ID, models.PaymentStatusPending).
		First(&existing).Error
	if errFind == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "payment already pending", "payment": toPaymentResponse(existing)})
		return
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query payments failed"})
		return
	}

	created, errCreate := h.gateway.Create(c.Request.Context(), h.cfg.AmountCents, h.cfg.Currency, h.cfg.ReturnURL)
	if errCreate != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable, please try again"})
		return
	}

	row := models.Payment{
		ID:          created.ID,
		UserID:      user.ID,
		AmountCents: h.cfg.AmountCents,
		Currency:    h.cfg.Currency,
		RedirectURL: created.RedirectURL,
		Status:      models.PaymentStatusPending,
	}
	if errSave := h.db.WithContext(c.Request.Context()).Create(&row).Error; errSave != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "record payment failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": toPaymentResponse(row)})
}

// Get reports the payment state after an entitlement resolver pass, so a
// client returning from the gateway redirect sees the settled outcome.
func (h *PaymentHandler) Get(c *gin.Context) {
	user := getUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	resolution, errResolve := h.resolver.Resolve(c.Request.Context(), user.ID)
	if errResolve != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolve entitlement failed"})
		return
	}

	var row models.Payment
	errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", c.Param("id"), user.ID).
		First(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query payment failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": toPaymentResponse(row), "premium": resolution.Premium})
}
