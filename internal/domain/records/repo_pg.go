package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Raidenx1212/meditech-sub001/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository { return &recordRepoPG{pool: pool} }

func (r *recordRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const recordCols = `id, patient_id, doctor_id, visit_date, diagnosis, treatment, notes, created_at, updated_at`

func (r *recordRepoPG) scanRecord(row pgx.Row) (*PatientRecord, error) {
	var rec PatientRecord
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.DoctorID, &rec.VisitDate,
		&rec.Diagnosis, &rec.Treatment, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &rec, err
}

func (r *recordRepoPG) Create(ctx context.Context, rec *PatientRecord) error {
	rec.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_record (id, patient_id, doctor_id, visit_date, diagnosis, treatment, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.ID, rec.PatientID, rec.DoctorID, rec.VisitDate, rec.Diagnosis, rec.Treatment, rec.Notes)
	return err
}

func (r *recordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PatientRecord, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM patient_record WHERE id = $1`, id))
}

func (r *recordRepoPG) Update(ctx context.Context, rec *PatientRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_record SET visit_date=$2, diagnosis=$3, treatment=$4, notes=$5, updated_at=NOW()
		WHERE id = $1`,
		rec.ID, rec.VisitDate, rec.Diagnosis, rec.Treatment, rec.Notes)
	return err
}

func (r *recordRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient_record WHERE id = $1`, id)
	return err
}

func (r *recordRepoPG) ListByPatient(ctx context.Context, patientID string) ([]*PatientRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+recordCols+` FROM patient_record
		WHERE patient_id = $1
		ORDER BY visit_date DESC, created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PatientRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, nil
}

func (r *recordRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*PatientRecord, int, error) {
	query := `SELECT ` + recordCols + ` FROM patient_record WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM patient_record WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["patient_id"]; ok {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["doctor_id"]; ok {
		query += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["start_date"]; ok {
		query += fmt.Sprintf(` AND visit_date >= $%d`, idx)
		countQuery += fmt.Sprintf(` AND visit_date >= $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["end_date"]; ok {
		query += fmt.Sprintf(` AND visit_date <= $%d`, idx)
		countQuery += fmt.Sprintf(` AND visit_date <= $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY visit_date DESC, created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*PatientRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, nil
}
