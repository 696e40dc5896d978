package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/registry"
)

// ActorHeader carries the caller identity established upstream (wallet
// signature or session token); the registry treats it as opaque.
const ActorHeader = "X-Actor-ID"

// RegistryHandler exposes the traceability registry over HTTP.
type RegistryHandler struct {
	reg    *registry.Registry
	logger *zap.Logger
}

// NewRegistryHandler constructs the HTTP handler adapter.
func NewRegistryHandler(reg *registry.Registry, logger *zap.Logger) *RegistryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryHandler{reg: reg, logger: logger}
}

func (h *RegistryHandler) actor(c *gin.Context) (string, bool) {
	actor := c.GetHeader(ActorHeader)
	if actor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + ActorHeader + " header"})
		return "", false
	}
	return actor, true
}

// fail maps the registry error taxonomy onto HTTP status codes.
func (h *RegistryHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch registry.KindOf(err) {
	case registry.KindUnauthorized:
		status = http.StatusForbidden
	case registry.KindDuplicateKey:
		status = http.StatusConflict
	case registry.KindNotFound:
		status = http.StatusNotFound
	case registry.KindInvalidArgument:
		status = http.StatusBadRequest
	case registry.KindSystemPaused:
		status = http.StatusServiceUnavailable
	}

	h.logger.Warn("registry operation rejected",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error(), "kind": string(registry.KindOf(err))})
}

type verifyIdentityRequest struct {
	Identity string `json:"identity" binding:"required"`
}

// VerifyIdentity marks a participant as verified. Administrator only.
func (h *RegistryHandler) VerifyIdentity(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req verifyIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	receipt, err := h.reg.VerifyIdentity(actor, req.Identity)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}

type registerBatchRequest struct {
	BatchNumber   string    `json:"batch_number" binding:"required"`
	SeedVariety   string    `json:"seed_variety"`
	PlantingDate  time.Time `json:"planting_date"`
	TotalQuantity float64   `json:"total_quantity"`
}

// RegisterBatch creates a new batch record owned by the caller.
func (h *RegistryHandler) RegisterBatch(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req registerBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	receipt, err := h.reg.RegisterBatch(actor, req.BatchNumber, req.SeedVariety, req.PlantingDate, req.TotalQuantity)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

type registerProductRequest struct {
	QRCode       string    `json:"qr_code" binding:"required"`
	Name         string    `json:"name"`
	Variety      string    `json:"variety"`
	IronContent  float64   `json:"iron_content"`
	Biofortified bool      `json:"biofortified"`
	Quantity     float64   `json:"quantity"`
	HarvestDate  time.Time `json:"harvest_date"`
	ContentHash  string    `json:"content_hash"`
	BatchNumber  string    `json:"batch_number"`
}

// RegisterProduct creates a new product record in status "registered".
func (h *RegistryHandler) RegisterProduct(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req registerProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	receipt, err := h.reg.RegisterProduct(actor, registry.ProductInput{
		QRCode:       req.QRCode,
		Name:         req.Name,
		Variety:      req.Variety,
		IronContent:  req.IronContent,
		Biofortified: req.Biofortified,
		Quantity:     req.Quantity,
		HarvestDate:  req.HarvestDate,
		ContentHash:  req.ContentHash,
		BatchNumber:  req.BatchNumber,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

type recordTransactionRequest struct {
	To       string  `json:"to" binding:"required"`
	QRCode   string  `json:"qr_code" binding:"required"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Kind     string  `json:"kind"`
}

// RecordTransaction appends a custody transfer to a product's log.
func (h *RegistryHandler) RecordTransaction(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req recordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	receipt, err := h.reg.RecordTransaction(actor, req.To, req.QRCode, req.Quantity, req.Price, req.Kind)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

type addStepRequest struct {
	Action      string `json:"action" binding:"required"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

// AddSupplyChainStep appends one provenance event to a product's trail.
func (h *RegistryHandler) AddSupplyChainStep(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req addStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	receipt, err := h.reg.AddSupplyChainStep(actor, c.Param("qr"), req.Action, req.Description, req.Location)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

// VerifyProduct flips a product's verified flag.
func (h *RegistryHandler) VerifyProduct(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	receipt, err := h.reg.VerifyProduct(actor, c.Param("qr"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// Pause stops all mutating registry operations. Administrator only.
func (h *RegistryHandler) Pause(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	receipt, err := h.reg.Pause(actor)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// Unpause resumes mutating registry operations. Administrator only.
func (h *RegistryHandler) Unpause(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	receipt, err := h.reg.Unpause(actor)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// GetBatch returns one batch record.
func (h *RegistryHandler) GetBatch(c *gin.Context) {
	batch, err := h.reg.GetBatch(c.Param("batchNumber"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// GetProduct returns one product record.
func (h *RegistryHandler) GetProduct(c *gin.Context) {
	product, err := h.reg.GetProduct(c.Param("qr"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// GetSupplyChainHistory returns the ordered provenance trail of a product.
func (h *RegistryHandler) GetSupplyChainHistory(c *gin.Context) {
	history, err := h.reg.GetSupplyChainHistory(c.Param("qr"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"qr_code": c.Param("qr"), "steps": history})
}

// GetTransactions returns the ordered transfer log of a product.
func (h *RegistryHandler) GetTransactions(c *gin.Context) {
	txs, err := h.reg.GetTransactions(c.Param("qr"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"qr_code": c.Param("qr"), "transactions": txs})
}

// IsVerified reports whether an identity has been verified.
func (h *RegistryHandler) IsVerified(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"identity": c.Param("id"),
		"verified": h.reg.IsVerified(c.Param("id")),
	})
}

// IsProductVerified reports whether a product carries the verified flag.
func (h *RegistryHandler) IsProductVerified(c *gin.Context) {
	verified, err := h.reg.IsProductVerified(c.Param("qr"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"qr_code": c.Param("qr"), "verified": verified})
}
