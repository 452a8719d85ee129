package main

import (
	"context"
	"log"
	"net/http"

	"github.com/marmeebeau/capstone-final/external/abstractapi"
	"github.com/marmeebeau/capstone-final/external/resend"

	"github.com/marmeebeau/capstone-final/internal/config"
	"github.com/marmeebeau/capstone-final/internal/db"
	"github.com/marmeebeau/capstone-final/internal/middleware"
	"github.com/marmeebeau/capstone-final/internal/repository"
	"github.com/marmeebeau/capstone-final/internal/services"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// ======================
	// INFRA
	// ======================
	if err := db.Migrate(ctx, cfg.DatabaseDSN); err != nil {
		log.Fatal(err)
	}
	pool, err := db.Connect(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	// ======================
	// EXTERNALS
	// ======================
	var emailValidator services.EmailValidator
	if cfg.UseEmailReputation {
		emailValidator, err = abstractapi.NewReputationValidator(cfg.AbstractEmailAPIKey)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		emailValidator = services.NewLocalValidator()
	}

	var mailer services.Mailer
	if cfg.ResendAPIKey != "" {
		mailer, err = resend.NewMailer(cfg.ResendAPIKey, cfg.MailFrom)
		if err != nil {
			log.Fatal(err)
		}
	}

	// ======================
	// SERVICE WIRING
	// ======================
	repo := repository.NewCoordinatorRepository(pool)
	svc := services.NewCoordinatorService(repo, emailValidator, mailer, cfg.BcryptCost)
	jwtm := middleware.NewJWT(cfg.JWTSecret, cfg.TokenTTL)

	// ======================
	// ECHO
	// ======================
	e := echo.New()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	api := e.Group("/api")
	registerCoordinatorRoutes(api, svc, jwtm)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
