package statement

import (
	"encoding/json"
	"time"

	"school-fees-backend/internal/models"
	"school-fees-backend/internal/repository"
	"school-fees-backend/internal/services/ledger"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Processor runs the ingestion pipeline for one uploaded statement: per-row
// parse, reference extraction, duplicate check, student/fee match, ledger
// posting. Rows are processed in independent transactions, so a crash
// mid-file leaves the rows already committed in place.
type Processor struct {
	db        *gorm.DB
	students  *repository.StudentRepository
	fees      *repository.StudentFeeRepository
	payments  *repository.PaymentRepository
	unmatched *repository.UnmatchedRepository
	uploads   *repository.UploadRepository
	ledger    *ledger.Service
	log       *logrus.Logger
}

func NewProcessor(
	db *gorm.DB,
	students *repository.StudentRepository,
	fees *repository.StudentFeeRepository,
	payments *repository.PaymentRepository,
	unmatched *repository.UnmatchedRepository,
	uploads *repository.UploadRepository,
	ledgerSvc *ledger.Service,
	log *logrus.Logger,
) *Processor {
	return &Processor{
		db:        db,
		students:  students,
		fees:      fees,
		payments:  payments,
		unmatched: unmatched,
		uploads:   uploads,
		ledger:    ledgerSvc,
		log:       log,
	}
}

// Process ingests statement bytes for an upload record, mutating its
// counters and finishing it as completed or failed.
func (p *Processor) Process(upload *models.BankStatementUpload, pattern *models.BankStatementPattern, data []byte) error {
	upload.Status = models.UploadStatusProcessing
	if err := p.uploads.Save(upload); err != nil {
		return errors.Wrap(err, "mark upload processing")
	}

	rows, err := ParseStatement(pattern, data)
	if err != nil {
		upload.Status = models.UploadStatusFailed
		upload.ErrorMessage = err.Error()
		if saveErr := p.uploads.Save(upload); saveErr != nil {
			return saveErr
		}
		return err
	}

	for _, row := range rows {
		upload.TotalTransactions++
		if row.Err != nil {
			upload.ErrorRows++
			rowErr := &models.StatementRowError{
				SchoolID: upload.SchoolID,
				UploadID: upload.ID,
				Line:     row.Line,
				RawText:  row.Raw,
				Reason:   row.Err.Error(),
			}
			if err := p.db.Create(rowErr).Error; err != nil {
				p.log.WithError(err).Error("store statement row error")
			}
			continue
		}
		p.processRow(upload, pattern, row)
	}

	now := time.Now()
	upload.Status = models.UploadStatusCompleted
	upload.ProcessedAt = &now
	p.log.WithFields(logrus.Fields{
		"school_id": upload.SchoolID,
		"upload_id": upload.ID,
		"total":     upload.TotalTransactions,
		"matched":   upload.MatchedPayments,
		"unmatched": upload.UnmatchedPayments,
		"duplicate": upload.DuplicateTransactions,
		"errors":    upload.ErrorRows,
	}).Info("bank statement processed")
	return p.uploads.Save(upload)
}

func (p *Processor) processRow(upload *models.BankStatementUpload, pattern *models.BankStatementPattern, row ParsedRow) {
	details := ExtractMpesaDetails(row.Narrative)
	studentID := ExtractStudentID(pattern.StudentIDPattern, row.Narrative)
	if studentID == "" {
		studentID = details.StudentID
	}

	bankRef := row.BankReference
	if bankRef == "" {
		bankRef = details.MpesaReference
	}
	if bankRef == "" {
		bankRef = extractBankReference(row.Narrative)
	}

	duplicate, err := p.isDuplicate(upload.SchoolID, details.MpesaReference, bankRef)
	if err != nil {
		p.log.WithError(err).WithField("line", row.Line).Error("duplicate check failed")
		p.storeUnmatched(upload, row, details, studentID, bankRef, "duplicate check failed: "+err.Error())
		upload.UnmatchedPayments++
		return
	}
	if duplicate {
		upload.DuplicateTransactions++
		return
	}

	matched, err := p.matchRow(upload, row, details, studentID)
	if err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{
			"school_id":  upload.SchoolID,
			"student_id": studentID,
			"line":       row.Line,
		}).Error("payment posting failed")
		p.storeUnmatched(upload, row, details, studentID, bankRef, "payment creation failed: "+err.Error())
		upload.UnmatchedPayments++
		return
	}
	if matched {
		upload.MatchedPayments++
		return
	}
	p.storeUnmatched(upload, row, details, studentID, bankRef, "")
	upload.UnmatchedPayments++
}

// isDuplicate checks the row's identifiers against everything already
// ingested for the school: unmatched transactions and payments, by M-Pesa
// reference first, then by bank reference. A row with neither identifier
// cannot be deduplicated and is always accepted.
func (p *Processor) isDuplicate(schoolID uint, mpesaRef, bankRef string) (bool, error) {
	for _, ref := range []string{mpesaRef, bankRef} {
		if ref == "" {
			continue
		}
		if found, err := p.unmatched.HasMpesaReference(schoolID, ref); err != nil || found {
			return found, err
		}
		if found, err := p.unmatched.HasBankReference(schoolID, ref); err != nil || found {
			return found, err
		}
		if found, err := p.payments.HasTransactionID(schoolID, ref); err != nil || found {
			return found, err
		}
		if found, err := p.payments.HasReferenceContaining(schoolID, ref); err != nil || found {
			return found, err
		}
	}
	return false, nil
}

// matchRow resolves the extracted student ID to a student and posts a
// completed payment allocated FIFO across the student's open obligations.
// Returns false when the row cannot be auto-resolved.
func (p *Processor) matchRow(upload *models.BankStatementUpload, row ParsedRow, details MpesaDetails, studentID string) (bool, error) {
	if studentID == "" {
		return false, nil
	}
	student, err := p.students.FindByStudentID(upload.SchoolID, studentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "look up student")
	}

	fees, err := p.fees.OutstandingForStudent(upload.SchoolID, student.ID)
	if err != nil {
		return false, errors.Wrap(err, "load outstanding fees")
	}
	allocations, remainder := ledger.Allocate(row.Amount, fees)
	if len(allocations) == 0 {
		return false, nil
	}

	paymentRef := truncate(row.Narrative, 100)
	if details.MpesaReference != "" {
		paymentRef = truncate("M-Pesa: "+details.MpesaReference+" - "+paymentRef, 100)
	}
	detailsJSON, _ := json.Marshal(details)

	payment := &models.Payment{
		SchoolID:        upload.SchoolID,
		PaymentID:       uuid.New(),
		StudentID:       student.ID,
		Amount:          row.Amount,
		PaymentMethod:   models.PaymentMethodBankTransfer,
		Status:          models.PaymentStatusCompleted,
		ReferenceNumber: paymentRef,
		TransactionID:   truncate(details.MpesaReference, 50),
		PaymentDate:     row.Date,
		ProcessedBy:     upload.UploadedBy,
		Notes:           "Auto-matched from bank statement upload: " + upload.FileName,
		GatewayDetails:  detailsJSON,
	}

	err = p.db.Transaction(func(tx *gorm.DB) error {
		return p.ledger.PostPayment(tx, payment, allocations, remainder)
	})
	if err != nil {
		return false, err
	}

	p.log.WithFields(logrus.Fields{
		"school_id":   upload.SchoolID,
		"student_id":  studentID,
		"amount":      row.Amount.StringFixed(2),
		"allocations": len(allocations),
	}).Info("statement row matched")
	return true, nil
}

func (p *Processor) storeUnmatched(upload *models.BankStatementUpload, row ParsedRow, details MpesaDetails, studentID, bankRef, note string) {
	detailsJSON, _ := json.Marshal(details)
	txn := &models.UnmatchedTransaction{
		SchoolID:           upload.SchoolID,
		UploadID:           &upload.ID,
		TransactionDate:    row.Date,
		Amount:             row.Amount,
		ReferenceNumber:    truncate(row.Narrative, 200),
		MobileNumber:       details.MobileNumber,
		ExtractedStudentID: studentID,
		BankAccount:        row.BankAccount,
		TransactionType:    row.TransactionType,
		Status:             models.UnmatchedStatusUnmatched,
		ExtractionDetails:  detailsJSON,
		Notes:              note,
	}
	if bankRef != "" {
		ref := truncate(bankRef, 100)
		txn.BankReferenceNumber = &ref
	}
	if details.MpesaReference != "" {
		ref := truncate(details.MpesaReference, 50)
		txn.MpesaReference = &ref
	}
	if err := p.unmatched.Create(txn); err != nil {
		p.log.WithError(err).WithField("line", row.Line).Error("store unmatched transaction")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
