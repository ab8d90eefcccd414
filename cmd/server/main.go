package main

import (
	"time"

	"school-fees-backend/internal/config"
	"school-fees-backend/internal/models"
	"school-fees-backend/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := config.NewLogger(cfg.LogLevel)

	db, err := config.InitDB(cfg.DatabaseDSN)
	if err != nil {
		log.WithError(err).Fatal("connect to database")
	}

	if err := db.AutoMigrate(
		&models.School{},
		&models.Student{},
		&models.StudentFee{},
		&models.Payment{},
		&models.MpesaPayment{},
		&models.PaymentAllocation{},
		&models.Receivable{},
		&models.Credit{},
		&models.BankStatementPattern{},
		&models.BankStatementUpload{},
		&models.StatementRowError{},
		&models.UnmatchedTransaction{},
	); err != nil {
		log.WithError(err).Fatal("run migrations")
	}

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-School-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, cfg, log)

	if err := r.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
