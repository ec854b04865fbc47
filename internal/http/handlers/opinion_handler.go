// Opinion HTTP handlers.
//
// This file exposes REST endpoints for the opinion resource:
//   - GET    /opinions/            (list, ETag support)
//   - POST   /opinions/            (create, Idempotency-Key support)
//   - GET    /opinions/{id}/       (get)
//   - PATCH  /opinions/{id}/       (partial update)
//   - DELETE /opinions/{id}/       (delete)
//   - GET    /get-random-opinion/  (random pick)
//
// Handlers are transport-thin: they decode and validate input, call the
// opinion service, and translate results into HTTP responses (including
// conditional responses and idempotent replays).
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/tbourn/go-opinions-backend/internal/domain"
	"github.com/tbourn/go-opinions-backend/internal/http/middleware"
	"github.com/tbourn/go-opinions-backend/internal/repo"
	"github.com/tbourn/go-opinions-backend/internal/services"
	"github.com/tbourn/go-opinions-backend/internal/utils"
)

//
// Service contract (context-aware)
//

// OpinionService defines the opinion operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type OpinionService interface {
	Create(ctx context.Context, in domain.Opinion) (*domain.Opinion, error)
	Get(ctx context.Context, id uint) (*domain.Opinion, error)
	List(ctx context.Context) ([]domain.Opinion, error)
	Update(ctx context.Context, id uint, patch domain.OpinionPatch) (*domain.Opinion, error)
	Delete(ctx context.Context, id uint) error
	Random(ctx context.Context) (*domain.Opinion, error)
}

//
// Handler wiring
//

// Handlers groups the opinion endpoints.
//
// db is optional: when nil, list ETags and idempotent replays are disabled
// and the handlers rely on the service alone.
type Handlers struct {
	svc     OpinionService
	db      *gorm.DB
	idemTTL time.Duration
}

// New constructs a Handlers bound to svc. db backs list ETags and
// idempotency records, which live for idemTTL.
func New(svc OpinionService, db *gorm.DB, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = 24 * time.Hour
	}
	return &Handlers{svc: svc, db: db, idemTTL: idemTTL}
}

//
// DTOs
//

// CreateOpinionRequest is the JSON payload for creating an opinion.
type CreateOpinionRequest struct {
	Title   string  `json:"title"    binding:"required" example:"On tabs"`
	Text    string  `json:"text"     binding:"required" example:"Tabs are for indentation, spaces for alignment."`
	Source  *string `json:"source"   example:"https://example.com/tabs"`
	AddedBy *string `json:"added_by" example:"alice"`
}

// UpdateOpinionRequest documents the PATCH payload. Every key is optional;
// keys that are present overwrite the stored value, and source/added_by may
// be cleared with null.
type UpdateOpinionRequest struct {
	Title   *string `json:"title"    example:"On tabs, revisited"`
	Text    *string `json:"text"     example:"Spaces everywhere."`
	Source  *string `json:"source"`
	AddedBy *string `json:"added_by"`
}

//
// Helpers
//

// readObject returns the raw request body if it is a non-empty JSON object.
// Anything else (no body, null, a scalar, an array, {} or broken JSON) is
// reported as "No data in request".
func readObject(c *gin.Context) ([]byte, error) {
	raw, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, NewAPIError(MsgBodyTooLarge, http.StatusRequestEntityTooLarge)
		}
		return nil, NewAPIError(MsgNoData)
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil || len(keys) == 0 {
		return nil, NewAPIError(MsgNoData)
	}
	return raw, nil
}

// pathID parses the :id segment. Non-numeric ids cannot name a record and
// are reported as not found.
func pathID(c *gin.Context) (uint, error) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		return 0, NewAPIError(MsgOpinionNotFound, http.StatusNotFound)
	}
	return id, nil
}

// outcome classifies err for opinion_operations_total.
func outcome(err error) string {
	switch {
	case err == nil:
		return middleware.OutcomeOK
	case errors.Is(err, services.ErrOpinionNotFound), errors.Is(err, services.ErrNoOpinions):
		return middleware.OutcomeNotFound
	case errors.Is(err, services.ErrDuplicateText):
		return middleware.OutcomeDuplicate
	case errors.Is(err, services.ErrMissingFields), errors.Is(err, services.ErrNoData):
		return middleware.OutcomeInvalid
	default:
		return middleware.OutcomeError
	}
}

// etagMatches reports whether an If-None-Match value names etag.
func etagMatches(inm, etag string) bool {
	for _, part := range strings.Split(inm, ",") {
		if p := strings.TrimSpace(part); p == etag || p == "*" {
			return true
		}
	}
	return false
}

// replay serves a stored create result for the request's Idempotency-Key.
// It reports false when the key is unknown, expired, or its opinion is gone.
func (h *Handlers) replay(c *gin.Context, key string) bool {
	if h.db == nil || !middleware.IsReplay(c) {
		return false
	}
	ctx := c.Request.Context()
	rec, err := repo.GetIdempotency(ctx, h.db, key, time.Now().UTC())
	if err != nil {
		return false
	}
	prev, err := h.svc.Get(ctx, rec.OpinionID)
	if err != nil {
		return false
	}
	middleware.CountOpinionOp("create", middleware.OutcomeReplay)
	c.Header("Idempotency-Replayed", "true")
	ok(c, rec.Status, OpinionResponse{Opinion: prev})
	return true
}

// remember records key so retries of this create are replayed. A stale row
// for the same key is rebound to id.
func (h *Handlers) remember(c *gin.Context, key string, id uint) {
	if h.db == nil {
		return
	}
	if _, err := repo.SaveIdempotency(c.Request.Context(), h.db, key, id, http.StatusCreated, h.idemTTL); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("idempotency_key", key).Msg("idempotency record not stored")
	}
}

//
// Handlers
//

// GetOpinion godoc
// @ID          getOpinion
// @Summary     Get an opinion
// @Description Returns the opinion with the given id.
// @Tags        Opinions
// @Produce     json
//
// @Param       id   path  int  true  "Opinion ID"  minimum(1) example(1)
//
// @Success     200  {object} handlers.OpinionResponse
// @Failure     404  {object} handlers.ErrorResponse "Opinion not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /opinions/{id}/ [get]
func (h *Handlers) GetOpinion(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		fail(c, err)
		return
	}
	o, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, fromService(err))
		return
	}
	ok(c, http.StatusOK, OpinionResponse{Opinion: o})
}

// ListOpinions godoc
// @ID          listOpinions
// @Summary     List opinions
// @Description Returns every opinion ordered by id. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Opinions
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"opinions:3:1700000000123456789\")
//
// @Success     200  {object} handlers.OpinionListResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /opinions/ [get]
func (h *Handlers) ListOpinions(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if h.db != nil {
		if count, maxTS, err := repo.OpinionsStats(ctx, h.db); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"opinions:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && etagMatches(inm, etag) {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.svc.List(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, OpinionListResponse{Opinions: items})
}

// CreateOpinion godoc
// @ID          createOpinion
// @Summary     Create an opinion
// @Description Stores a new opinion. Text must be unique. A retried request carrying the same Idempotency-Key returns the original opinion.
// @Tags        Opinions
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Deduplicates retries"  example(2b1f6c1e-create-1)
// @Param       body             body    handlers.CreateOpinionRequest  true  "Opinion payload"
//
// @Success     201  {object} handlers.OpinionResponse
// @Header      201  {string} Idempotency-Replayed "true when served from a previous request"
// @Failure     400  {object} handlers.ErrorResponse "No data, missing fields or duplicate text"
// @Failure     413  {object} handlers.ErrorResponse "Body too large"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /opinions/ [post]
func (h *Handlers) CreateOpinion(c *gin.Context) {
	raw, err := readObject(c)
	if err != nil {
		fail(c, err)
		return
	}
	var req CreateOpinionRequest
	if err := binding.JSON.BindBody(raw, &req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			middleware.CountOpinionOp("create", middleware.OutcomeInvalid)
			fail(c, NewAPIError(MsgMissingFields))
			return
		}
		fail(c, NewAPIError(MsgNoData))
		return
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.replay(c, idemKey) {
		return
	}

	o, err := h.svc.Create(c.Request.Context(), domain.Opinion{
		Title:   req.Title,
		Text:    req.Text,
		Source:  req.Source,
		AddedBy: req.AddedBy,
	})
	middleware.CountOpinionOp("create", outcome(err))
	if err != nil {
		fail(c, fromService(err))
		return
	}

	if idemKey != "" {
		h.remember(c, idemKey, o.ID)
	}
	middleware.LoggerFrom(c).Info().Uint("opinion_id", o.ID).Msg("opinion created")
	ok(c, http.StatusCreated, OpinionResponse{Opinion: o})
}

// UpdateOpinion godoc
// @ID          updateOpinion
// @Summary     Update an opinion
// @Description Overwrites the supplied fields only. Text must stay unique; title and text cannot be cleared.
// @Tags        Opinions
// @Accept      json
// @Produce     json
//
// @Param       id    path  int  true  "Opinion ID"  minimum(1) example(1)
// @Param       body  body  handlers.UpdateOpinionRequest  true  "Fields to change"
//
// @Success     200  {object} handlers.OpinionResponse
// @Failure     400  {object} handlers.ErrorResponse "No data, missing fields or duplicate text"
// @Failure     404  {object} handlers.ErrorResponse "Opinion not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /opinions/{id}/ [patch]
func (h *Handlers) UpdateOpinion(c *gin.Context) {
	raw, err := readObject(c)
	if err != nil {
		fail(c, err)
		return
	}
	var patch domain.OpinionPatch
	if err := binding.JSON.BindBody(raw, &patch); err != nil {
		fail(c, NewAPIError(MsgNoData))
		return
	}
	id, err := pathID(c)
	if err != nil {
		fail(c, err)
		return
	}

	ctx := c.Request.Context()
	var o *domain.Opinion
	if patch.Empty() {
		// Only unknown keys: nothing to write.
		o, err = h.svc.Get(ctx, id)
	} else {
		o, err = h.svc.Update(ctx, id, patch)
	}
	middleware.CountOpinionOp("update", outcome(err))
	if err != nil {
		fail(c, fromService(err))
		return
	}
	ok(c, http.StatusOK, OpinionResponse{Opinion: o})
}

// DeleteOpinion godoc
// @ID          deleteOpinion
// @Summary     Delete an opinion
// @Tags        Opinions
// @Produce     json
//
// @Param       id   path  int  true  "Opinion ID"  minimum(1) example(1)
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Opinion not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /opinions/{id}/ [delete]
func (h *Handlers) DeleteOpinion(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		fail(c, err)
		return
	}
	err = h.svc.Delete(c.Request.Context(), id)
	middleware.CountOpinionOp("delete", outcome(err))
	if err != nil {
		fail(c, fromService(err))
		return
	}
	noContent(c)
}

// RandomOpinion godoc
// @ID          randomOpinion
// @Summary     Get a random opinion
// @Description Returns one opinion chosen uniformly at random.
// @Tags        Opinions
// @Produce     json
//
// @Success     200  {object} handlers.OpinionResponse
// @Failure     404  {object} handlers.ErrorResponse "No opinions in the database"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /get-random-opinion/ [get]
func (h *Handlers) RandomOpinion(c *gin.Context) {
	o, err := h.svc.Random(c.Request.Context())
	if err != nil {
		fail(c, fromService(err))
		return
	}
	ok(c, http.StatusOK, OpinionResponse{Opinion: o})
}
