package wire

import (
	"net/http"

	"showtime-booking/internal/adaptor"
	"showtime-booking/internal/catalog"
	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/usecase"
	"showtime-booking/pkg/middleware"
	"showtime-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// App holds the wired HTTP surface and the services the background consumers
// attach to.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring initializes services, handlers and routes.
func Wiring(
	repo *repository.Repository,
	gateway catalog.Gateway,
	scheduler usecase.ExpiryScheduler,
	config *utils.Config,
	logger *zap.Logger,
) *App {
	service := usecase.NewService(repo, gateway, scheduler, config, logger)
	handler := adaptor.NewHandler(service, logger)

	router := setupRouter(handler, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(handler *adaptor.Handler, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))

	wireBooking(r, handler.Booking)
	wireFeedback(r, handler.Feedback)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
