package main

import (
	"flag"

	"go-rental-store/internal/config"
	"go-rental-store/internal/repository"
	"go-rental-store/internal/service"
	"go-rental-store/pkg/database"
	"go-rental-store/pkg/logger"

	"github.com/rs/zerolog/log"
)

// create-admin creates the global admin, or resets its password with -reset.
// The user must change the password on the next login either way.
func main() {
	// 1. Load Env
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Setup(logger.Options{Level: cfg.LogLevel, Pretty: true})

	email := flag.String("email", cfg.AdminEmail, "admin email")
	password := flag.String("password", cfg.AdminPassword, "initial password (min 6 characters)")
	reset := flag.Bool("reset", false, "reset the password when the user already exists")
	flag.Parse()

	// 2. Setup Database
	db, err := database.ConnectDB(database.Options{
		DSN:      cfg.DatabaseURL,
		Host:     cfg.DBHost,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		Port:     cfg.DBPort,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	// 3. Create or reset
	res, err := service.EnsureAdmin(repository.NewUserRepo(db), repository.NewStoreRepo(db), *email, *password, *reset)
	if err != nil {
		log.Fatal().Err(err).Str("email", *email).Msg("admin setup failed")
	}

	switch {
	case res.AdminCreated:
		log.Info().Str("email", *email).Msg("admin user created")
	case res.PasswordUpdated:
		log.Info().Str("email", *email).Msg("admin password reset")
	default:
		log.Info().Str("email", *email).Msg("admin already exists, nothing to do (use -reset to change the password)")
	}
}
