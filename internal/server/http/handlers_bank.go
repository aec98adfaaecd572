package httpserver

import (
	"net/http"
	"time"
)

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	userID, _, _ := userFromCtx(r.Context())
	bal, err := s.ledger.Balance(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": bal})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	userID, _, _ := userFromCtx(r.Context())
	var req struct {
		Amount      int64  `json:"amount"`
		Description string `json:"description"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	bal, err := s.ledger.Deposit(r.Context(), userID, req.Amount, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": bal})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	userID, _, _ := userFromCtx(r.Context())
	var req struct {
		Amount      int64  `json:"amount"`
		Description string `json:"description"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	bal, err := s.ledger.Withdraw(r.Context(), userID, req.Amount, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": bal})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	userID, _, _ := userFromCtx(r.Context())
	var req struct {
		ToAccount int64 `json:"to_account"`
		Amount    int64 `json:"amount"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	bal, err := s.ledger.Transfer(r.Context(), userID, req.ToAccount, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balance": bal})
}

type txView struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, _, _ := userFromCtx(r.Context())
	txs, err := s.ledger.History(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]txView, 0, len(txs))
	for _, t := range txs {
		out = append(out, txView{
			ID:          t.ID.String(),
			Kind:        string(t.Kind),
			Amount:      t.Amount,
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, _, _ := userFromCtx(r.Context())
	u, err := s.accounts.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(u))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _, _ := userFromCtx(r.Context())
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.Name == "" {
		badRequest(w, "name required")
		return
	}
	if err := s.accounts.UpdateName(r.Context(), userID, req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _, _ := userFromCtx(r.Context())
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if err := s.accounts.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changed": true})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.accounts.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]userView, 0, len(users))
	for i := range users {
		out = append(out, toUserView(&users[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}
