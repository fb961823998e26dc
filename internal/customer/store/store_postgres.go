package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"onboarding/internal/customer/models"
	id "onboarding/pkg/domain"
	"onboarding/pkg/platform/sentinel"
	txcontext "onboarding/pkg/platform/tx"
)

// PostgresStore persists customers in PostgreSQL. Writes join the
// transaction carried by ctx when there is one.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed customer store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (
			id, email, phone, first_name, last_name, full_name, date_of_birth,
			nationality, document_type, document_number, document_expiry,
			document_image_keys, selfie_image_key, extraction_confidence,
			match_score, verified_at, created_at, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	status := customer.Status
	if status == "" {
		status = models.StatusPendingScreening
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(customer.ID),
		customer.Email,
		customer.Phone,
		customer.FirstName,
		customer.LastName,
		customer.FullName,
		customer.DateOfBirth,
		customer.Nationality,
		customer.DocumentType,
		customer.DocumentNumber,
		customer.DocumentExpiry,
		pq.Array(customer.DocumentImageKeys),
		customer.SelfieImageKey,
		customer.ExtractionConfidence,
		customer.MatchScore,
		customer.VerifiedAt,
		customer.CreatedAt,
		string(status),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("customer violates %s: %w", pqErr.Constraint, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, customerID id.CustomerID) (*models.Customer, error) {
	query := `
		SELECT id, email, phone, first_name, last_name, full_name, date_of_birth,
			   nationality, document_type, document_number, document_expiry,
			   document_image_keys, selfie_image_key, extraction_confidence,
			   match_score, verified_at, created_at, status,
			   aml_status, aml_screening_id, credit_check_status, credit_score,
			   risk_score, risk_level, screened_at
		FROM customers
		WHERE id = $1
	`
	var (
		c            models.Customer
		uid          uuid.UUID
		status       string
		amlStatus    sql.NullString
		screeningID  sql.NullString
		creditStatus sql.NullString
		creditScore  sql.NullInt64
		riskScore    sql.NullInt64
		riskLevel    sql.NullString
		screenedAt   sql.NullTime
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(customerID)).Scan(
		&uid,
		&c.Email,
		&c.Phone,
		&c.FirstName,
		&c.LastName,
		&c.FullName,
		&c.DateOfBirth,
		&c.Nationality,
		&c.DocumentType,
		&c.DocumentNumber,
		&c.DocumentExpiry,
		pq.Array(&c.DocumentImageKeys),
		&c.SelfieImageKey,
		&c.ExtractionConfidence,
		&c.MatchScore,
		&c.VerifiedAt,
		&c.CreatedAt,
		&status,
		&amlStatus,
		&screeningID,
		&creditStatus,
		&creditScore,
		&riskScore,
		&riskLevel,
		&screenedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("customer not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find customer by id: %w", err)
	}
	c.ID = id.CustomerID(uid)
	c.Status = models.Status(status)
	if screenedAt.Valid {
		c.Screening = &models.Screening{
			AMLStatus:    amlStatus.String,
			ScreeningID:  screeningID.String,
			CreditStatus: creditStatus.String,
			CreditScore:  int(creditScore.Int64),
			RiskScore:    int(riskScore.Int64),
			RiskLevel:    riskLevel.String,
			ScreenedAt:   screenedAt.Time.UTC(),
		}
	}
	return &c, nil
}

// RecordScreening stores the screening result and the resulting status.
func (s *PostgresStore) RecordScreening(ctx context.Context, customerID id.CustomerID, status models.Status, screening models.Screening) error {
	query := `
		UPDATE customers
		SET status = $2, aml_status = $3, aml_screening_id = $4,
			credit_check_status = $5, credit_score = $6, risk_score = $7,
			risk_level = $8, screened_at = $9
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(customerID),
		string(status),
		screening.AMLStatus,
		screening.ScreeningID,
		screening.CreditStatus,
		screening.CreditScore,
		screening.RiskScore,
		screening.RiskLevel,
		screening.ScreenedAt,
	)
	if err != nil {
		return fmt.Errorf("record screening: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record screening: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("customer not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ExistsByDocumentNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE document_number = $1)`, number,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check document number: %w", err)
	}
	return exists, nil
}
