package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/centbank/facegate/internal/account"
	"github.com/centbank/facegate/internal/auth"
	"github.com/centbank/facegate/internal/enroll"
	"github.com/centbank/facegate/internal/ledger"
	"github.com/centbank/facegate/internal/session"
)

// Server wires services into HTTP handlers.
type Server struct {
	accounts *account.Service
	auth     *auth.Service
	enroll   *enroll.Service
	ledger   *ledger.Service
	sessions *session.Store
	log      *zap.Logger
}

// New constructs the HTTP server.
func New(
	accounts *account.Service,
	authSvc *auth.Service,
	enrollSvc *enroll.Service,
	ledgerSvc *ledger.Service,
	sessions *session.Store,
	log *zap.Logger,
) *Server {
	return &Server{
		accounts: accounts,
		auth:     authSvc,
		enroll:   enrollSvc,
		ledger:   ledgerSvc,
		sessions: sessions,
		log:      log,
	}
}

// Router builds the chi route tree.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(Recover(s.log))
	r.Use(Logging(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Post("/api/register", s.handleRegister)

	r.Route("/api/login", func(r chi.Router) {
		r.Post("/begin", s.handleLoginBegin)
		r.Post("/frame", s.handleLoginFrame)
		r.Post("/password", s.handleLoginPassword)
		r.Post("/direct", s.handleLoginDirect)
	})

	// Everything below needs an issued access session.
	r.Group(func(r chi.Router) {
		r.Use(Auth(s.sessions))
		r.Post("/api/enroll", s.handleEnroll)
		r.Post("/api/logout", s.handleLogout)

		r.Get("/api/balance", s.handleBalance)
		r.Post("/api/deposit", s.handleDeposit)
		r.Post("/api/withdraw", s.handleWithdraw)
		r.Post("/api/transfer", s.handleTransfer)
		r.Get("/api/transactions", s.handleHistory)

		r.Get("/api/profile", s.handleProfile)
		r.Put("/api/profile", s.handleUpdateProfile)
		r.Post("/api/password", s.handleChangePassword)

		r.Get("/api/admin/users", s.handleListUsers)
	})

	return r
}
