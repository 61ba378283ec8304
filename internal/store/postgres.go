package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rezonia/facturador/internal/model"
)

// PostgresStore persists documents in the documents table.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store on an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const documentColumns = `
	id, kind, sequence, access_key, emission_date, buyer, lines, tax_rate,
	total_without_tax, total_tax, grand_total, status,
	authorization_number, authorization_timestamp, messages, voided,
	modified_access_key, modified_sequence, modified_emission_date, reason,
	created_at, updated_at`

func (s *PostgresStore) Upsert(ctx context.Context, doc *model.Document) (*model.Document, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	buyer, err := json.Marshal(doc.Buyer)
	if err != nil {
		return nil, err
	}
	lines, err := json.Marshal(doc.Lines)
	if err != nil {
		return nil, err
	}
	messages, err := json.Marshal(doc.Messages)
	if err != nil {
		return nil, err
	}

	args := []any{
		doc.ID, string(doc.Kind), doc.Sequence, nullString(doc.AccessKey),
		doc.EmissionDate, buyer, lines, doc.TaxRate.String(),
		doc.TotalWithoutTax.String(), doc.TotalTax.String(), doc.GrandTotal.String(),
		string(doc.Status), nullString(doc.AuthorizationNumber), doc.AuthorizationTimestamp,
		messages, doc.Voided, nullString(doc.ModifiedAccessKey), nullString(doc.ModifiedSequence),
		nullTime(doc.ModifiedEmissionDate), nullString(string(doc.Reason)),
		doc.CreatedAt, doc.UpdatedAt,
	}

	// Primary path: update by access key.
	if doc.AccessKey != "" {
		res, err := s.db.ExecContext(ctx, `
			update documents set
				kind=$2, sequence=$3, access_key=$4, emission_date=$5, buyer=$6,
				lines=$7, tax_rate=$8, total_without_tax=$9, total_tax=$10,
				grand_total=$11, status=$12, authorization_number=$13,
				authorization_timestamp=$14, messages=$15, voided=$16,
				modified_access_key=$17, modified_sequence=$18,
				modified_emission_date=$19, reason=$20, created_at=$21, updated_at=$22
			where access_key=$4 or id=$1
		`, args...)
		if err != nil {
			return nil, err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return doc, nil
		}
	}

	// Fallback: id-keyed upsert. Covers fresh inserts and a record
	// whose access key was just regenerated.
	_, err = s.db.ExecContext(ctx, `
		insert into documents (`+documentColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		on conflict (id) do update set
			kind=excluded.kind, sequence=excluded.sequence,
			access_key=excluded.access_key, emission_date=excluded.emission_date,
			buyer=excluded.buyer, lines=excluded.lines, tax_rate=excluded.tax_rate,
			total_without_tax=excluded.total_without_tax, total_tax=excluded.total_tax,
			grand_total=excluded.grand_total, status=excluded.status,
			authorization_number=excluded.authorization_number,
			authorization_timestamp=excluded.authorization_timestamp,
			messages=excluded.messages, voided=excluded.voided,
			modified_access_key=excluded.modified_access_key,
			modified_sequence=excluded.modified_sequence,
			modified_emission_date=excluded.modified_emission_date,
			reason=excluded.reason, updated_at=excluded.updated_at
	`, args...)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *PostgresStore) FindByAccessKey(ctx context.Context, accessKey string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+documentColumns+` from documents where access_key=$1`, accessKey)
	return scanDocument(row)
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+documentColumns+` from documents where id=$1`, id)
	return scanDocument(row)
}

func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `delete from documents`)
	return err
}

func scanDocument(row *sql.Row) (*model.Document, error) {
	var (
		doc                        model.Document
		kind, status               string
		accessKey, authNumber      sql.NullString
		modifiedKey, modifiedSeq   sql.NullString
		reason                     sql.NullString
		authTimestamp, modifiedDat sql.NullTime
		taxRate, twt, tt, gt       string
		buyer, lines, messages     []byte
	)
	err := row.Scan(
		&doc.ID, &kind, &doc.Sequence, &accessKey, &doc.EmissionDate,
		&buyer, &lines, &taxRate, &twt, &tt, &gt, &status,
		&authNumber, &authTimestamp, &messages, &doc.Voided,
		&modifiedKey, &modifiedSeq, &modifiedDat, &reason,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.Kind = model.DocumentKind(kind)
	doc.Status = model.Status(status)
	doc.AccessKey = accessKey.String
	doc.AuthorizationNumber = authNumber.String
	doc.ModifiedAccessKey = modifiedKey.String
	doc.ModifiedSequence = modifiedSeq.String
	doc.Reason = model.CreditNoteReason(reason.String)
	if authTimestamp.Valid {
		ts := authTimestamp.Time
		doc.AuthorizationTimestamp = &ts
	}
	if modifiedDat.Valid {
		doc.ModifiedEmissionDate = modifiedDat.Time
	}

	if err := json.Unmarshal(buyer, &doc.Buyer); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lines, &doc.Lines); err != nil {
		return nil, err
	}
	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &doc.Messages); err != nil {
			return nil, err
		}
	}

	if doc.TaxRate, err = parseDecimal(taxRate); err != nil {
		return nil, err
	}
	if doc.TotalWithoutTax, err = parseDecimal(twt); err != nil {
		return nil, err
	}
	if doc.TotalTax, err = parseDecimal(tt); err != nil {
		return nil, err
	}
	if doc.GrandTotal, err = parseDecimal(gt); err != nil {
		return nil, err
	}
	return &doc, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
