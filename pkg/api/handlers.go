package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rzzdr/cds-pricing-engine/internal/market"
	"github.com/rzzdr/cds-pricing-engine/internal/product"
	"github.com/rzzdr/cds-pricing-engine/internal/risk"
	"github.com/rzzdr/cds-pricing-engine/internal/store"
	"github.com/rzzdr/cds-pricing-engine/internal/websocket"
	"github.com/rzzdr/cds-pricing-engine/pkg/models"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/logger"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	pricing    *risk.PricingService
	calculator *risk.Calculator
	trades     store.TradeStore
	market     *market.Store
	hub        *websocket.Hub
	log        *logger.Logger
}

// CreateHandlers creates new API handlers
func CreateHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		pricing:    deps.Pricing,
		calculator: deps.Calculator,
		trades:     deps.Trades,
		market:     deps.Market,
		hub:        deps.Hub,
		log:        logger.GetLogger("api.handlers"),
	}
}

// statusFor maps an error type to an HTTP status
func statusFor(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeInvalidArgument:
		return http.StatusBadRequest
	case errors.ErrorTypeConfiguration:
		return http.StatusUnprocessableEntity
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeAlreadyExists:
		return http.StatusConflict
	case errors.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	case errors.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
		"type":  errors.TypeOf(err).String(),
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": fmt.Sprintf("Invalid request: %v", err),
		"type":  errors.ErrorTypeInvalidArgument.String(),
	})
}

// HealthCheckHandler handles health check requests
func (h *Handlers) HealthCheckHandler(c *gin.Context) {
	_, updated, loaded := h.market.Snapshot()
	body := gin.H{
		"status":        "ok",
		"timestamp":     time.Now().Format(time.RFC3339),
		"market_loaded": loaded,
		"trades":        h.trades.Len(),
	}
	if loaded {
		body["market_updated"] = updated.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, body)
}

// PriceHandler prices one trade against the market in the request
func (h *Handlers) PriceHandler(c *gin.Context) {
	var request models.PricingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err)
		return
	}
	h.price(c, request)
}

// SensitivityHandler prices one trade with its curve node sensitivities
func (h *Handlers) SensitivityHandler(c *gin.Context) {
	var request models.PricingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, err)
		return
	}
	request.WithSensitivity = true
	h.price(c, request)
}

func (h *Handlers) price(c *gin.Context, request models.PricingRequest) {
	result, err := h.pricing.Price(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// BookValuationHandler revalues the whole book against the current market
func (h *Handlers) BookValuationHandler(c *gin.Context) {
	book, err := h.calculator.RevalueBook(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if h.hub != nil {
		h.hub.Publish(book)
	}
	c.JSON(http.StatusOK, book)
}

// ListTradesHandler returns every trade of the book
func (h *Handlers) ListTradesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"trades": h.trades.All(),
	})
}

// GetTradeHandler returns one trade
func (h *Handlers) GetTradeHandler(c *gin.Context) {
	trade, err := h.trades.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

// PutTradeHandler adds or replaces a trade after checking it resolves
func (h *Handlers) PutTradeHandler(c *gin.Context) {
	id := c.Param("id")

	var trade models.CdsTrade
	if err := c.ShouldBindJSON(&trade); err != nil {
		badRequest(c, err)
		return
	}
	if trade.ID != id {
		h.respondError(c, errors.InvalidArgumentf("trade id %q does not match path id %q", trade.ID, id))
		return
	}
	if _, err := product.ResolveModel(trade); err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.trades.Save(trade); err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Infof("Trade %s saved", id)
	c.JSON(http.StatusOK, trade)
}

// DeleteTradeHandler removes a trade from the book
func (h *Handlers) DeleteTradeHandler(c *gin.Context) {
	id := c.Param("id")
	if err := h.trades.Delete(id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("Trade %s deleted", id),
	})
}

// GetMarketHandler returns the installed market snapshot
func (h *Handlers) GetMarketHandler(c *gin.Context) {
	snapshot, _, loaded := h.market.Snapshot()
	if !loaded {
		h.respondError(c, errors.Unavailable("no market snapshot loaded"))
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// PutMarketHandler installs a new market snapshot
func (h *Handlers) PutMarketHandler(c *gin.Context) {
	var snapshot models.MarketSnapshot
	if err := c.ShouldBindJSON(&snapshot); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.market.Update(snapshot); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"valuation_date": snapshot.ValuationDate,
	})
}

// NotFoundHandler answers unknown routes
func (h *Handlers) NotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error": fmt.Sprintf("route %s %s not found", c.Request.Method, c.Request.URL.Path),
	})
}
