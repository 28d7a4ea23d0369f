package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"pos-service/internal/cache"
	"pos-service/internal/cart"
	"pos-service/internal/ledger"
	"pos-service/internal/models"
	"pos-service/internal/retry"
	"pos-service/internal/session"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	sessions *session.Manager
	cache    *cache.SnapshotCache
	catalog  *ledger.Catalog
	archive  *store.Archive
	health   *retry.Health
}

// NewHandler creates a new HTTP handler. archive may be nil when the
// reporting database is unavailable; the archive route then serves 503.
func NewHandler(sessions *session.Manager, snap *cache.SnapshotCache, catalog *ledger.Catalog, archive *store.Archive, health *retry.Health) *Handler {
	return &Handler{
		sessions: sessions,
		cache:    snap,
		catalog:  catalog,
		archive:  archive,
		health:   health,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/catalog", h.getCatalog)
		v1.PUT("/catalog/:category/:name", h.upsertProduct)
		v1.GET("/sales", h.getSales)
		v1.GET("/sales/summary", h.getSalesSummary)
		v1.GET("/sales/archive", h.getArchivedSales)

		v1.POST("/sessions", h.createSession)
		v1.DELETE("/sessions/:id", h.closeSession)
		v1.GET("/sessions/:id/cart", h.getCart)
		v1.POST("/sessions/:id/cart/lines", h.addLine)
		v1.DELETE("/sessions/:id/cart/lines", h.removeLine)
		v1.POST("/sessions/:id/cart/commit", h.commitCart)
		v1.POST("/sessions/:id/cart/reset", h.resetCart)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports not-ready while the remote store is marked
// disconnected; the register still serves stale reads in that state.
func (h *Handler) readinessCheck(c *gin.Context) {
	state := h.health.State()
	if state == retry.StateDisconnected {
		_, nextRetry := h.health.LastFailure()
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":       "degraded",
			"connectivity": state.String(),
			"next_retry":   nextRetry.Unix(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ready",
		"connectivity": state.String(),
	})
}

func (h *Handler) getCatalog(c *gin.Context) {
	inv, fresh := h.cache.Inventory(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"inventory": inv,
		"fresh":     fresh,
	})
}

func (h *Handler) upsertProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	key := models.ProductKey{
		Category: c.Param("category"),
		Name:     c.Param("name"),
	}
	if err := h.catalog.Upsert(c.Request.Context(), key, p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}

func (h *Handler) getSales(c *gin.Context) {
	sales, fresh := h.cache.Sales(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"sales": sales,
		"fresh": fresh,
	})
}

func (h *Handler) getSalesSummary(c *gin.Context) {
	sales, fresh := h.cache.Sales(c.Request.Context())

	var total float64
	for _, s := range sales {
		total += s.Total
	}
	count := len(sales)
	average := 0.0
	if count > 0 {
		average = models.Round2(total / float64(count))
	}

	c.JSON(http.StatusOK, gin.H{
		"total":          models.Round2(total),
		"transactions":   count,
		"average_ticket": average,
		"fresh":          fresh,
	})
}

// getArchivedSales queries the Postgres reporting mirror. from/to are
// RFC3339; the window defaults to the last 24 hours.
func (h *Handler) getArchivedSales(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Sales archive unavailable",
		})
		return
	}

	to := time.Now()
	from := to.Add(-24 * time.Hour)
	var err error
	if v := c.Query("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid from timestamp",
				"details": err.Error(),
			})
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid to timestamp",
				"details": err.Error(),
			})
			return
		}
	}

	sales, err := h.archive.SalesBetween(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sales": sales,
		"from":  from,
		"to":    to,
	})
}

func (h *Handler) createSession(c *gin.Context) {
	s := h.sessions.Create()
	c.JSON(http.StatusCreated, gin.H{"session_id": s.ID})
}

// closeSession releases the cart's reserved stock and removes the
// session, so a cashier signing off does not hold stock until the
// idle sweeper runs.
func (h *Handler) closeSession(c *gin.Context) {
	id := c.Param("id")
	if _, ok := h.sessions.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	resp := gin.H{"status": "closed"}
	if err := h.sessions.Close(c.Request.Context(), id); err != nil {
		// Best-effort release failed for some lines; the session is
		// still gone.
		resp["warning"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// lineRequest is the add/remove payload.
type lineRequest struct {
	Category string `json:"category" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

type commitRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
}

func (h *Handler) getCart(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	var lines []models.CartLine
	var total float64
	var state string
	_ = s.WithCart(func(ct *cart.Cart) error {
		lines = ct.Lines()
		total = ct.Total()
		state = ct.State().String()
		return nil
	})

	c.JSON(http.StatusOK, gin.H{
		"lines": lines,
		"total": total,
		"state": state,
	})
}

func (h *Handler) addLine(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	var req lineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	key := models.ProductKey{Category: req.Category, Name: req.Name}
	err := s.WithCart(func(ct *cart.Cart) error {
		return ct.AddLine(c.Request.Context(), key, req.Quantity)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondCartState(c, s)
}

func (h *Handler) removeLine(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	var req lineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	key := models.ProductKey{Category: req.Category, Name: req.Name}
	err := s.WithCart(func(ct *cart.Cart) error {
		return ct.RemoveLine(c.Request.Context(), key, req.Quantity)
	})

	// A partial release means the line is gone locally but the remote
	// restore failed; the cart state is still the answer.
	var partial *models.PartialReleaseError
	if err != nil && !errors.As(err, &partial) {
		respondError(c, err)
		return
	}
	h.respondCartState(c, s, warningOf(err))
}

func (h *Handler) commitCart(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	var sale models.Sale
	err := s.WithCart(func(ct *cart.Cart) error {
		var err error
		sale, err = ct.Commit(c.Request.Context(), req.PaymentMethod)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sale": sale})
}

func (h *Handler) resetCart(c *gin.Context) {
	s, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	err := s.WithCart(func(ct *cart.Cart) error {
		return ct.Reset(c.Request.Context())
	})
	h.respondCartState(c, s, warningOf(err))
}

func (h *Handler) respondCartState(c *gin.Context, s *session.Session, warning ...string) {
	var lines []models.CartLine
	var total float64
	var state string
	_ = s.WithCart(func(ct *cart.Cart) error {
		lines = ct.Lines()
		total = ct.Total()
		state = ct.State().String()
		return nil
	})

	resp := gin.H{
		"lines": lines,
		"total": total,
		"state": state,
	}
	if len(warning) > 0 && warning[0] != "" {
		resp["warning"] = warning[0]
	}
	c.JSON(http.StatusOK, resp)
}

func warningOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// respondError maps the error taxonomy onto HTTP statuses: business
// rejections are client errors, connectivity is 503.
func respondError(c *gin.Context, err error) {
	var ins *models.InsufficientStockError
	if errors.As(err, &ins) {
		c.JSON(http.StatusConflict, gin.H{
			"error":       "Insufficient stock",
			"details":     err.Error(),
			"max_addable": ins.Available,
		})
		return
	}

	var val *models.ValidationError
	if errors.As(err, &val) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Validation failed",
			"details": err.Error(),
		})
		return
	}

	var conn *models.ConnectivityError
	if errors.As(err, &conn) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Remote store unavailable",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Operation failed",
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
