package handlers

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/newsdesk/internal/auth"
	"github.com/MrSnakeDoc/newsdesk/internal/domain"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/deps"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/mw"
	"github.com/MrSnakeDoc/newsdesk/internal/httpserver/respond"
	"github.com/MrSnakeDoc/newsdesk/internal/logger"
	"github.com/MrSnakeDoc/newsdesk/internal/utils"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			respond.Error(w, d.Logger, domain.Validation("invalid JSON body"))
			return
		}

		ip := utils.ClientIP(r, d.TrustProxy)
		session, err := d.Guard.Login(ip, req.Username, req.Password)
		switch {
		case errors.Is(err, auth.ErrBlocked):
			d.Logger.Warn("login blocked", logger.String("remote_ip", ip))
			respond.Error(w, d.Logger, domain.RateLimited("too many failed attempts, try again later"))
			return
		case err != nil:
			d.Logger.Warn("login failed", logger.String("remote_ip", ip))
			respond.Error(w, d.Logger, err)
			return
		}

		d.Logger.Info("operator logged in", logger.String("remote_ip", ip), logger.String("user", session.Username))
		respond.JSON(w, http.StatusOK, session)
	}
}

func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Guard.Logout(mw.BearerToken(r))
		w.WriteHeader(http.StatusNoContent)
	}
}
