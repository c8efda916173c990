package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bluecatalog/directory-api/internal/dto"
	"github.com/bluecatalog/directory-api/internal/entity"
)

// ErrRecordNotFound indicates there is no directory record with the given id.
var ErrRecordNotFound = errors.New("company record not found")

// RecordRepository describes persistence operations for company records.
type RecordRepository interface {
	// List returns every known record in insertion order. The importer reads
	// this snapshot once per run to derive the next sequential id.
	List(ctx context.Context) ([]entity.CompanyRecord, error)
	ListPage(ctx context.Context, filter dto.ListFilter) ([]entity.CompanyRecord, error)
	BulkInsert(ctx context.Context, records []entity.CompanyRecord) (int, error)
	RecordVerification(ctx context.Context, recordID, field string, mark entity.VerificationMark) error
}

// pgxPool is the subset of pgxpool.Pool the repository relies on. pgxmock
// satisfies it in tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PGXRecordRepository implements RecordRepository using pgx.
type PGXRecordRepository struct {
	pool pgxPool
}

// NewPGXRecordRepository wires a pgx backed repository.
func NewPGXRecordRepository(pool *pgxpool.Pool) *PGXRecordRepository {
	return &PGXRecordRepository{pool: pool}
}

var _ pgxPool = (*pgxpool.Pool)(nil)

const recordColumns = `
            id,
            subject,
            name,
            details,
            description,
            status,
            level,
            required_clearance,
            last_accessed,
            address,
            zip_code,
            city,
            country,
            ceo,
            tax_id,
            logo,
            images,
            category,
            tags,
            language,
            social_media,
            source_found,
            verification_status,
            created_at,
            updated_at`

// List returns all records ordered by insertion sequence.
func (r *PGXRecordRepository) List(ctx context.Context) ([]entity.CompanyRecord, error) {
	query := "SELECT " + recordColumns + " FROM company_records ORDER BY seq ASC"

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListPage retrieves records matching the provided filter, in insertion order.
func (r *PGXRecordRepository) ListPage(ctx context.Context, filter dto.ListFilter) ([]entity.CompanyRecord, error) {
	baseQuery := strings.Builder{}
	baseQuery.WriteString("SELECT " + recordColumns + " FROM company_records")

	var (
		clauses []string
		args    []any
		idx     = 1
	)

	if filter.Q != "" {
		pattern := fmt.Sprintf("%%%s%%", filter.Q)
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR address ILIKE $%d)", idx, idx+1))
		args = append(args, pattern, pattern)
		idx += 2
	}
	if filter.City != "" {
		clauses = append(clauses, fmt.Sprintf("LOWER(city) = LOWER($%d)", idx))
		args = append(args, filter.City)
		idx++
	}
	if filter.Country != "" {
		clauses = append(clauses, fmt.Sprintf("LOWER(country) = LOWER($%d)", idx))
		args = append(args, filter.Country)
		idx++
	}

	if len(clauses) > 0 {
		baseQuery.WriteString(" WHERE ")
		baseQuery.WriteString(strings.Join(clauses, " AND "))
	}

	baseQuery.WriteString(" ORDER BY seq ASC")

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	offset := (page - 1) * perPage
	baseQuery.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1))
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, baseQuery.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list records page: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

const insertRecordSQL = `
        INSERT INTO company_records (
            id, subject, name, details, description, status, level,
            required_clearance, last_accessed, address, zip_code, city,
            country, ceo, tax_id, logo, images, category, tags, language,
            social_media, source_found, verification_status, updated_at
        ) VALUES (
            $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,
            $17::jsonb,$18::jsonb,$19::jsonb,$20::jsonb,$21::jsonb,$22,$23::jsonb,NOW()
        );
    `

// BulkInsert persists a batch of freshly imported records in one transaction.
func (r *PGXRecordRepository) BulkInsert(ctx context.Context, records []entity.CompanyRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("start bulk insert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, record := range records {
		images, err := marshalList(record.Images)
		if err != nil {
			return inserted, fmt.Errorf("marshal images for %q: %w", record.ID, err)
		}
		category, err := marshalList(record.Category)
		if err != nil {
			return inserted, fmt.Errorf("marshal category for %q: %w", record.ID, err)
		}
		tags, err := marshalList(record.Tags)
		if err != nil {
			return inserted, fmt.Errorf("marshal tags for %q: %w", record.ID, err)
		}
		language, err := marshalList(record.Language)
		if err != nil {
			return inserted, fmt.Errorf("marshal language for %q: %w", record.ID, err)
		}
		socials, err := json.Marshal(record.SocialMedia)
		if err != nil {
			return inserted, fmt.Errorf("marshal social media for %q: %w", record.ID, err)
		}
		verification := record.VerificationStatus
		if verification == nil {
			verification = map[string]entity.VerificationMark{}
		}
		verificationJSON, err := json.Marshal(verification)
		if err != nil {
			return inserted, fmt.Errorf("marshal verification status for %q: %w", record.ID, err)
		}

		_, err = tx.Exec(ctx, insertRecordSQL,
			record.ID,
			record.Subject,
			record.Name,
			record.Details,
			record.Description,
			string(record.Status),
			string(record.Level),
			string(record.RequiredClearance),
			record.LastAccessed.Time,
			record.Address,
			record.ZipCode,
			record.City,
			record.Country,
			record.CEO,
			record.TaxID,
			record.Logo,
			string(images),
			string(category),
			string(tags),
			string(language),
			string(socials),
			record.SourceFound,
			string(verificationJSON),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert record %q: %w", record.ID, err)
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return inserted, fmt.Errorf("commit bulk insert tx: %w", err)
	}

	return inserted, nil
}

// RecordVerification merges a review decision into the record's verification map.
func (r *PGXRecordRepository) RecordVerification(ctx context.Context, recordID, field string, mark entity.VerificationMark) error {
	patch, err := json.Marshal(map[string]entity.VerificationMark{field: mark})
	if err != nil {
		return fmt.Errorf("marshal verification mark: %w", err)
	}

	cmd, err := r.pool.Exec(ctx, `
        UPDATE company_records
        SET verification_status = verification_status || $2::jsonb,
            updated_at = NOW()
        WHERE id = $1
    `, recordID, string(patch))
	if err != nil {
		return fmt.Errorf("record verification for %q: %w", recordID, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func marshalList(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

func scanRecords(rows pgx.Rows) ([]entity.CompanyRecord, error) {
	var records []entity.CompanyRecord
	for rows.Next() {
		var (
			rec              entity.CompanyRecord
			lastAccessed     time.Time
			imagesJSON       []byte
			categoryJSON     []byte
			tagsJSON         []byte
			languageJSON     []byte
			socialsJSON      []byte
			verificationJSON []byte
		)

		err := rows.Scan(
			&rec.ID,
			&rec.Subject,
			&rec.Name,
			&rec.Details,
			&rec.Description,
			&rec.Status,
			&rec.Level,
			&rec.RequiredClearance,
			&lastAccessed,
			&rec.Address,
			&rec.ZipCode,
			&rec.City,
			&rec.Country,
			&rec.CEO,
			&rec.TaxID,
			&rec.Logo,
			&imagesJSON,
			&categoryJSON,
			&tagsJSON,
			&languageJSON,
			&socialsJSON,
			&rec.SourceFound,
			&verificationJSON,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		rec.LastAccessed = entity.NewCalendarDate(lastAccessed)

		if err := unmarshalList(imagesJSON, &rec.Images); err != nil {
			return nil, fmt.Errorf("unmarshal images: %w", err)
		}
		if err := unmarshalList(categoryJSON, &rec.Category); err != nil {
			return nil, fmt.Errorf("unmarshal category: %w", err)
		}
		if err := unmarshalList(tagsJSON, &rec.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
		if err := unmarshalList(languageJSON, &rec.Language); err != nil {
			return nil, fmt.Errorf("unmarshal language: %w", err)
		}
		if len(socialsJSON) > 0 {
			if err := json.Unmarshal(socialsJSON, &rec.SocialMedia); err != nil {
				return nil, fmt.Errorf("unmarshal social media: %w", err)
			}
		}
		rec.VerificationStatus = map[string]entity.VerificationMark{}
		if len(verificationJSON) > 0 {
			if err := json.Unmarshal(verificationJSON, &rec.VerificationStatus); err != nil {
				return nil, fmt.Errorf("unmarshal verification status: %w", err)
			}
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func unmarshalList(data []byte, dest *[]string) error {
	*dest = []string{}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
