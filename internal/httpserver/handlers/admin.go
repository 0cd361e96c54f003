package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/newsdesk/internal/auth"
	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/respond"
	"github.com/MrSnakeDoc/newsdesk/internal/logger"
	"github.com/MrSnakeDoc/newsdesk/internal/moderation"
)

const (
	defaultApprovedLimit = 50
	maxBodyBytes         = 64 << 10
)

type listResponse struct {
	Items []*domain.Article `json:"items"`
	Count int               `json:"count"`
}

type itemResponse struct {
	Item *domain.Article `json:"item"`
}

type approveRequest struct {
	PublishNow *bool `json:"publishNow"`
}

type approveResponse struct {
	Item         *domain.Article `json:"item"`
	Published    bool            `json:"published"`
	PublishError string          `json:"publishError,omitempty"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type unpublishResponse struct {
	ID           string `json:"id"`
	Retracted    bool   `json:"retracted"`
	RetractError string `json:"retractError,omitempty"`
}

// List serves one moderation collection, newest first
func List(d deps.Deps, c domain.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := d.Queue.List(c, moderation.ListFilter{})
		respond.JSON(w, http.StatusOK, listResponse{Items: items, Count: len(items)})
	}
}

// ListApproved supports ?filter=all|today|week|month and ?limit=N (default 50)
func ListApproved(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := approvedFilter(r, d.Now())
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		items := d.Queue.List(domain.CollectionApproved, f)
		respond.JSON(w, http.StatusOK, listResponse{Items: items, Count: len(items)})
	}
}

func approvedFilter(r *http.Request, now time.Time) (moderation.ListFilter, error) {
	f := moderation.ListFilter{Limit: defaultApprovedLimit}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return f, domain.Validation("limit must be a positive integer")
		}
		f.Limit = n
	}

	switch r.URL.Query().Get("filter") {
	case "", "all":
	case "today":
		y, m, day := now.Date()
		f.Since = time.Date(y, m, day, 0, 0, 0, 0, now.Location())
	case "week":
		f.Since = now.Add(-7 * 24 * time.Hour)
	case "month":
		y, m, _ := now.Date()
		f.Since = time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	default:
		return f, domain.Validation("filter must be one of all, today, week, month")
	}
	return f, nil
}

// Approve accepts an optional {"publishNow": bool} body; publishing is the default
func Approve(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req approveRequest
		if err := decodeOptional(r, &req); err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		opts := moderation.ApproveOptions{SkipPublish: req.PublishNow != nil && !*req.PublishNow}

		res, err := d.Queue.Approve(r.Context(), chi.URLParam(r, "id"), auth.OperatorFrom(r.Context()), opts)
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}

		out := approveResponse{Item: res.Item, Published: res.Published}
		if res.PublishErr != nil {
			out.PublishError = domain.MessageOf(res.PublishErr)
		}
		d.Logger.Info("article approved",
			logger.String("id", res.Item.ID),
			logger.String("by", res.Item.ApprovedBy),
			logger.Bool("published", res.Published))
		respond.JSON(w, http.StatusOK, out)
	}
}

func Reject(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rejectRequest
		if err := decodeOptional(r, &req); err != nil {
			respond.Error(w, d.Logger, err)
			return
		}

		item, err := d.Queue.Reject(r.Context(), chi.URLParam(r, "id"), auth.OperatorFrom(r.Context()), req.Reason)
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		d.Logger.Info("article rejected", logger.String("id", item.ID), logger.String("by", item.RejectedBy))
		respond.JSON(w, http.StatusOK, itemResponse{Item: item})
	}
}

func Reconsider(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := d.Queue.Reconsider(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, itemResponse{Item: item})
	}
}

func Unpublish(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		res, err := d.Queue.Unpublish(r.Context(), id)
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}

		out := unpublishResponse{ID: id, Retracted: res.Retracted}
		if res.RetractErr != nil {
			out.RetractError = domain.MessageOf(res.RetractErr)
		}
		respond.JSON(w, http.StatusOK, out)
	}
}

func Republish(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := d.Queue.Republish(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respond.Error(w, d.Logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, itemResponse{Item: item})
	}
}

func Stats(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, d.Queue.Stats(d.Now()))
	}
}

// decodeOptional decodes a JSON body into dst. An empty body leaves dst untouched.
func decodeOptional(r *http.Request, dst any) error {
	if err := decodeJSON(r, dst); err != nil && !errors.Is(err, io.EOF) {
		return domain.Validation("invalid JSON body")
	}
	return nil
}

// decodeJSON reads one bounded JSON object and rejects unknown keys.
// An empty body yields io.EOF.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
