package httpserver

import (
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/centbank/facegate/internal/model"
)

type userView struct {
	ID            int64      `json:"id"`
	AccountNumber int64      `json:"account_number"`
	Name          string     `json:"name"`
	Bank          string     `json:"bank"`
	Balance       int64      `json:"balance"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

func toUserView(u *model.User) userView {
	return userView{
		ID:            u.ID,
		AccountNumber: u.AccountNumber,
		Name:          u.Name,
		Bank:          u.Bank,
		Balance:       u.Balance,
		CreatedAt:     u.CreatedAt,
		LastLoginAt:   u.LastLoginAt,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	u, err := s.accounts.Register(r.Context(), req.Name, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserView(u))
}

func (s *Server) handleLoginBegin(w http.ResponseWriter, r *http.Request) {
	sess, err := s.auth.BeginLogin()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID.String(),
		"deadline":   sess.Deadline,
	})
}

func (s *Server) handleLoginFrame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Image     string `json:"image"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	sid, err := uuid.FromString(req.SessionID)
	if err != nil {
		badRequest(w, "invalid session id")
		return
	}
	if req.Image == "" {
		badRequest(w, "image required")
		return
	}

	out, err := s.auth.SubmitFrame(r.Context(), sid, req.Image)
	if err != nil {
		writeError(w, err)
		return
	}
	if out.Matched {
		writeJSON(w, http.StatusOK, map[string]any{
			"matched":  true,
			"user_id":  out.UserID,
			"attempts": out.Attempts,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matched":  false,
		"reason":   out.Reason,
		"hint":     out.Hint,
		"attempts": out.Attempts,
	})
}

func (s *Server) handleLoginPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		UserID    int64  `json:"user_id"`
		Password  string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	sid, err := uuid.FromString(req.SessionID)
	if err != nil {
		badRequest(w, "invalid session id")
		return
	}

	access, err := s.auth.SubmitPassword(r.Context(), sid, req.UserID, req.Password, r.RemoteAddr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accessView(access))
}

func (s *Server) handleLoginDirect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	access, u, err := s.auth.DirectLogin(r.Context(), req.Name, req.Password, r.RemoteAddr)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{
		"access": accessView(access),
		"user":   toUserView(u),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	_, sid, ok := userFromCtx(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"revoked": false})
		return
	}
	if err := s.sessions.Revoke(r.Context(), sid); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revoked": true})
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	userID, _, _ := userFromCtx(r.Context())
	var req struct {
		Images []string `json:"images"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if len(req.Images) == 0 {
		badRequest(w, "images required")
		return
	}
	n, err := s.enroll.Enroll(r.Context(), userID, req.Images)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"samples": n})
}

func accessView(a model.AccessSession) map[string]any {
	return map[string]any{
		"token":      a.Token,
		"user_id":    a.UserID,
		"expires_at": a.ExpiresAt,
	}
}
