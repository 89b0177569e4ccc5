// Package httpapi serves the confession services as a JSON HTTP API for
// mobile clients. Request and response bodies share the rpc wire types.
package httpapi

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/confessions/internal/common"
	"github.com/dmitrijs2005/confessions/internal/logging"
	"github.com/dmitrijs2005/confessions/internal/rpc"
	"github.com/dmitrijs2005/confessions/internal/server/geo"
	"github.com/dmitrijs2005/confessions/internal/server/models"
	"github.com/dmitrijs2005/confessions/internal/server/services"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

type Handler struct {
	Identity  *services.IdentityService
	Admission *services.AdmissionService
	Feed      *services.FeedService
	Logger    logging.Logger
}

// NewRouter wires the API routes onto a gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger)

	r.GET("/healthz", h.Health)

	v1 := r.Group("/v1")
	v1.POST("/identity", h.Identify)
	v1.GET("/feed", h.GetFeed)
	v1.POST("/confessions/:id/view", h.View)

	authed := v1.Group("", h.requireIdentity)
	authed.POST("/confessions", h.Submit)
	authed.GET("/status", h.Status)

	return r
}

func (h *Handler) requestLogger(c *gin.Context) {
	c.Next()
	h.Logger.Debug(c.Request.Context(), "http request",
		"method", c.Request.Method, "path", c.FullPath(), "status", c.Writer.Status())
}

func (h *Handler) requireIdentity(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	id, err := h.Identity.Authenticate(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Set(identityKey, id)
	c.Next()
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Identify(c *gin.Context) {
	var req rpc.IdentifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grant, err := h.Identity.Identify(c.Request.Context(), req.DeviceSecret)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.IdentifyResponse{IdentityToken: grant.Token, ExpiresAt: grant.ExpiresAt})
}

func (h *Handler) Submit(c *gin.Context) {
	var req rpc.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := services.Submission{Content: req.Content, RequestID: req.RequestID}
	if req.IncludeLocation {
		sub.Location = &geo.Point{Lat: req.Latitude, Lon: req.Longitude}
	}

	confession, err := h.Admission.TryAdmit(c.Request.Context(), c.MustGet(identityKey).(models.IdentityID), sub)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateSubmission) {
			c.JSON(http.StatusOK, rpc.SubmitResponse{Duplicate: true})
			return
		}
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rpc.SubmitResponse{ConfessionID: confession.ID})
}

func (h *Handler) GetFeed(c *gin.Context) {
	order, err := services.ParseFeedOrder(c.Query("order"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
	}

	page, err := h.Feed.Feed(c.Request.Context(), services.FeedRequest{Order: order, Cursor: c.Query("cursor"), Limit: limit})
	if err != nil {
		h.writeError(c, err)
		return
	}

	items := make([]rpc.Confession, 0, len(page.Items))
	for _, x := range page.Items {
		items = append(items, rpc.Confession{
			ID:              x.ID,
			Content:         x.Content,
			GeneralLocation: x.GeneralLocation,
			CreatedAt:       x.CreatedAt,
			ViewCount:       x.ViewCount,
			Trending:        x.Trending,
		})
	}
	c.JSON(http.StatusOK, rpc.FeedResponse{Items: items, NextCursor: page.NextCursor})
}

func (h *Handler) View(c *gin.Context) {
	n, err := h.Feed.RecordView(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.ViewResponse{ViewCount: n})
}

func (h *Handler) Status(c *gin.Context) {
	st, err := h.Admission.Status(c.Request.Context(), c.MustGet(identityKey).(models.IdentityID))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rpc.StatusResponse{
		CanSubmit:         st.CanSubmit,
		RetryAfterSeconds: ceilSeconds(st.RetryAfter.Seconds()),
		NextEligibleAt:    st.NextEligibleAt,
		TotalPosts:        st.TotalPosts,
	})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrEmptyContent),
		errors.Is(err, common.ErrTooLong),
		errors.Is(err, common.ErrInvalidSecret),
		errors.Is(err, common.ErrInvalidCursor),
		errors.Is(err, common.ErrInvalidOrder):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, common.ErrRateLimited):
		retry, _ := common.RetryAfter(err)
		seconds := ceilSeconds(retry.Seconds())
		c.Header("Retry-After", strconv.FormatInt(seconds, 10))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": common.ErrRateLimited.Error(), "retry_after_seconds": seconds})

	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})

	case errors.Is(err, common.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": common.ErrStorageUnavailable.Error()})

	default:
		h.Logger.Error(c.Request.Context(), "unexpected error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func ceilSeconds(s float64) int64 {
	return int64(math.Ceil(s))
}
