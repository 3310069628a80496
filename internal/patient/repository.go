package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// birth_date is a DATE column; it is read back as YYYY-MM-DD text.
const selectColumns = `id, first_name, last_name, to_char(birth_date, 'YYYY-MM-DD'), gender, address, phone_number, created_at, updated_at`

// Repository stores patients in PostgreSQL.
type Repository struct {
	db    *sql.DB
	table string
}

// NewRepository returns a Repository working on <schema>.patients.
func NewRepository(db *sql.DB, schema string) *Repository {
	return &Repository{
		db:    db,
		table: pq.QuoteIdentifier(schema) + ".patients",
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(row rowScanner) (*Patient, error) {
	var p Patient
	var address sql.NullString
	var phoneNumber sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.BirthDate,
		&p.Gender,
		&address,
		&phoneNumber,
		&p.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if address.Valid {
		p.Address = address.String
	}
	if phoneNumber.Valid {
		p.PhoneNumber = phoneNumber.String
	}
	if updatedAt.Valid {
		p.UpdatedAt = &updatedAt.Time
	}
	return &p, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *Repository) FindByLastName(ctx context.Context, lastName string) (*Patient, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE last_name = $1
		ORDER BY id
		LIMIT 1
	`, selectColumns, r.table)

	p, err := scanPatient(r.db.QueryRowContext(ctx, query, lastName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query patient by last name: %w", err)
	}
	return p, nil
}

func (r *Repository) FindAll(ctx context.Context) ([]Patient, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY id
	`, selectColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	return collect(rows)
}

func (r *Repository) FindPage(ctx context.Context, limit, offset int) ([]Patient, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, selectColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query patient page: %w", err)
	}
	defer rows.Close()

	return collect(rows)
}

func collect(rows *sql.Rows) ([]Patient, error) {
	patients := []Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patients: %w", err)
	}
	return patients, nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var total int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count patients: %w", err)
	}
	return total, nil
}

func (r *Repository) Create(ctx context.Context, req PatientRequest) (*Patient, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s
		(first_name, last_name, birth_date, gender, address, phone_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING %s
	`, r.table, selectColumns)

	p, err := scanPatient(r.db.QueryRowContext(ctx, query,
		req.FirstName,
		req.LastName,
		req.BirthDate,
		req.Gender,
		nullable(req.Address),
		nullable(req.PhoneNumber),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert patient: %w", err)
	}
	return p, nil
}

func (r *Repository) Update(ctx context.Context, id int64, req PatientRequest) (*Patient, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET first_name = $2,
		    last_name = $3,
		    birth_date = $4,
		    gender = $5,
		    address = $6,
		    phone_number = $7,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, r.table, selectColumns)

	p, err := scanPatient(r.db.QueryRowContext(ctx, query,
		id,
		req.FirstName,
		req.LastName,
		req.BirthDate,
		req.Gender,
		nullable(req.Address),
		nullable(req.PhoneNumber),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	return p, nil
}

// Delete removes the patient and returns the row as it was before deletion.
func (r *Repository) Delete(ctx context.Context, id int64) (*Patient, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
		RETURNING %s
	`, r.table, selectColumns)

	p, err := scanPatient(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete patient: %w", err)
	}
	return p, nil
}
