// Package api собирает HTTP API облачного хранилища сохранений:
//
//	GET|HEAD /api/v1/health          # Проба связи (публичный)
//	POST     /api/v1/auth/register   # Регистрация (публичный)
//	POST     /api/v1/auth/login      # Логин, выдает bearer-токен (публичный)
//	GET      /api/v1/saves           # Метаданные всех слотов (auth)
//	GET      /api/v1/saves/{slot}    # Скачать слот (auth)
//	PUT      /api/v1/saves/{slot}    # Загрузить слот (auth)
//	DELETE   /api/v1/saves/{slot}    # Удалить слот (auth)
package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/slog"

	healthAPI "savesync/internal/app/server/api/http/health"
	"savesync/internal/app/server/api/http/middleware"
	"savesync/internal/app/server/api/http/middleware/auth"
	"savesync/internal/app/server/api/http/middleware/logger"
	saveAPI "savesync/internal/app/server/api/http/save"
	userAPI "savesync/internal/app/server/api/http/user"
	"savesync/internal/domain/save"
	"savesync/internal/domain/session"
	"savesync/internal/domain/user"
)

type Deps struct {
	Users     user.Repository
	Saves     save.Repository
	Sessions  session.Servicer
	Validator user.Validator
}

type Handlers struct {
	Health *healthAPI.Handler
	User   *userAPI.Handler
	Save   *saveAPI.Handler
}

// New создает *chi.Mux со всеми операциями, зарегистрированными через huma.Register
func New(deps Deps, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()
	mux.Use(chimw.Recoverer)

	config := huma.DefaultConfig("Savesync API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	h := handlers(deps, log)
	h.Health.SetupRoutes(API)
	h.User.SetupRoutes(API)
	h.Save.SetupRoutes(API)

	return mux
}

func handlers(deps Deps, log *slog.Logger) *Handlers {
	if deps.Validator == nil {
		deps.Validator = user.NewValidator(user.StrictPolicy())
	}

	authMW := auth.New(deps.Sessions, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	healthHandler := healthAPI.NewHandler(log, middlewares.Add(loggerMW.Middleware()).GetAllAndClear())

	userService := user.NewService(deps.Users, deps.Validator, log)
	userHandler := userAPI.NewHandler(userService, deps.Sessions, log,
		middlewares.Add(loggerMW.Middleware()).GetAllAndClear())

	saveService := save.NewService(deps.Saves, log)
	saveHandler := saveAPI.NewHandler(saveService, log,
		middlewares.Add(loggerMW.Middleware(), authMW.Middleware()).GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		User:   userHandler,
		Save:   saveHandler,
	}
}
