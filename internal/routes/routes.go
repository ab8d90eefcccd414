package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"school-fees-backend/internal/config"
	handler "school-fees-backend/internal/handlers"
	"school-fees-backend/internal/repository"
	"school-fees-backend/internal/services/ledger"
	"school-fees-backend/internal/services/mpesa"
	"school-fees-backend/internal/services/statement"
	"school-fees-backend/internal/tokens"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, log *logrus.Logger) {
	studentRepo := repository.NewStudentRepository(db)
	feeRepo := repository.NewStudentFeeRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	patternRepo := repository.NewPatternRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	unmatchedRepo := repository.NewUnmatchedRepository(db)
	receivableRepo := repository.NewReceivableRepository(db)
	creditRepo := repository.NewCreditRepository(db)

	signer := tokens.NewSigner(cfg.TokenSecret)
	ledgerSvc := ledger.NewService(db, log)
	processor := statement.NewProcessor(db, studentRepo, feeRepo, paymentRepo, unmatchedRepo, uploadRepo, ledgerSvc, log)
	reviewer := statement.NewReviewer(db, studentRepo, feeRepo, paymentRepo, unmatchedRepo, ledgerSvc, log)
	mpesaClient := mpesa.NewClient(cfg.Mpesa, log)
	mpesaSvc := mpesa.NewService(db, mpesaClient, ledgerSvc, log)

	statementHandler := handler.NewStatementHandler(patternRepo, uploadRepo, processor, signer)
	patternHandler := handler.NewPatternHandler(patternRepo, signer)
	unmatchedHandler := handler.NewUnmatchedHandler(unmatchedRepo, reviewer, signer)
	paymentHandler := handler.NewPaymentHandler(paymentRepo, feeRepo, ledgerSvc, signer)
	receivableHandler := handler.NewReceivableHandler(receivableRepo, signer)
	creditHandler := handler.NewCreditHandler(creditRepo, ledgerSvc, signer)
	studentHandler := handler.NewStudentHandler(studentRepo, feeRepo, ledgerSvc)
	mpesaHandler := handler.NewMpesaHandler(studentRepo, feeRepo, mpesaSvc, signer, log)

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	statements := api.Group("/statements")
	statements.POST("/upload", statementHandler.Upload)
	statements.GET("", statementHandler.ListUploads)
	statements.GET("/:id", statementHandler.GetUpload)

	patterns := api.Group("/patterns")
	patterns.POST("", patternHandler.Create)
	patterns.GET("", patternHandler.List)
	patterns.GET("/:id", patternHandler.Get)
	patterns.PUT("/:id", patternHandler.Update)
	patterns.DELETE("/:id", patternHandler.Delete)

	unmatched := api.Group("/unmatched")
	unmatched.GET("", unmatchedHandler.List)
	unmatched.GET("/:id", unmatchedHandler.Get)
	unmatched.POST("/:id/match", unmatchedHandler.Match)
	unmatched.POST("/:id/ignore", unmatchedHandler.Ignore)
	unmatched.DELETE("/:id", unmatchedHandler.Delete)

	payments := api.Group("/payments")
	payments.GET("", paymentHandler.List)
	payments.POST("", paymentHandler.Record)
	payments.GET("/:id", paymentHandler.Get)
	payments.GET("/:id/allocations", paymentHandler.Allocations)

	receivables := api.Group("/receivables")
	receivables.GET("", receivableHandler.List)
	receivables.GET("/:id", receivableHandler.Get)
	receivables.GET("/:id/allocations", receivableHandler.Allocations)

	credits := api.Group("/credits")
	credits.GET("", creditHandler.List)
	credits.POST("", creditHandler.Create)
	credits.GET("/:id", creditHandler.Get)
	credits.POST("/:id/apply", creditHandler.Apply)
	credits.POST("/apply-all", creditHandler.ApplyAll)

	students := api.Group("/students")
	students.POST("", studentHandler.Create)
	students.GET("", studentHandler.List)
	students.GET("/:id", studentHandler.Get)
	students.GET("/:id/fees", studentHandler.ListFees)
	students.POST("/:id/fees", studentHandler.ChargeFee)

	mp := api.Group("/mpesa")
	mp.POST("/stkpush", mpesaHandler.STKPush)
	mp.POST("/callback", mpesaHandler.Callback)
}
