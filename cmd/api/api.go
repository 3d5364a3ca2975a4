package api

import (
	"net/http"

	"github.com/dojoworks/academy-server/service/article"
	"github.com/dojoworks/academy-server/service/class"
	"github.com/dojoworks/academy-server/service/enrollment"
	"github.com/dojoworks/academy-server/service/exercise"
	"github.com/dojoworks/academy-server/service/membership"
	"github.com/dojoworks/academy-server/service/offer"
	"github.com/dojoworks/academy-server/service/payment"
	"github.com/dojoworks/academy-server/service/session"
	"github.com/dojoworks/academy-server/service/slot"
	"github.com/dojoworks/academy-server/service/student"
	"github.com/dojoworks/academy-server/service/teacher"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
	logger  *zap.Logger
}

func NewApiServer(address string, db *gorm.DB, logger *zap.Logger) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
		logger:  logger,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	// Content type is set once at the boundary rather than per handler.
	subrouter.Use(jsonContentType)

	studentHandler := student.NewHandler(s.db)
	studentHandler.RegisterRoutes(subrouter)

	teacherHandler := teacher.NewHandler(s.db)
	teacherHandler.RegisterRoutes(subrouter)

	classHandler := class.NewHandler(s.db)
	classHandler.RegisterRoutes(subrouter)

	enrollmentHandler := enrollment.NewHandler(s.db, s.logger)
	enrollmentHandler.RegisterRoutes(subrouter)

	slotHandler := slot.NewSlotHandler(s.db, s.logger)
	slotHandler.RegisterRoutes(subrouter)

	sessionHandler := session.NewHandler(s.db)
	sessionHandler.RegisterRoutes(subrouter)

	exerciseHandler := exercise.NewHandler(s.db)
	exerciseHandler.RegisterRoutes(subrouter)

	membershipHandler := membership.NewHandler(s.db)
	membershipHandler.RegisterRoutes(subrouter)

	offerHandler := offer.NewHandler(s.db)
	offerHandler.RegisterRoutes(subrouter)

	paymentHandler := payment.NewHandler(s.db)
	paymentHandler.RegisterRoutes(subrouter)

	articleHandler := article.NewHandler(s.db)
	articleHandler.RegisterRoutes(subrouter)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	s.logger.Info("Server listening", zap.String("address", s.address))
	return http.ListenAndServe(s.address, cors(router))
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
