package scheduling

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

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const apptCols = `id, doctor_id, patient_id, doctor_name, patient_name, date, "time", status, notes, created_at, updated_at`

// slot labels are not lexically chronological ("01:00 PM" < "09:00 AM"),
// so ordering parses the label back into a time of day.
const slotOrder = `to_timestamp("time", 'HH12:MI AM')::time`

func (r *appointmentRepoPG) scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.DoctorName, &a.PatientName,
		&a.Date, &a.Time, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

// isSlotViolation detects the partial unique index on non-cancelled
// (doctor_id, date, "time") rows.
func isSlotViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "appointment_active_slot_idx"
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, doctor_id, patient_id, doctor_name, patient_name, date, "time", status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.DoctorID, a.PatientID, a.DoctorName, a.PatientName, a.Date, a.Time, a.Status, a.Notes)
	if isSlotViolation(err) {
		return ErrSlotTaken
	}
	return err
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppt(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET doctor_id=$2, patient_id=$3, doctor_name=$4, patient_name=$5,
			date=$6, "time"=$7, status=$8, notes=$9, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.DoctorID, a.PatientID, a.DoctorName, a.PatientName,
		a.Date, a.Time, a.Status, a.Notes)
	if isSlotViolation(err) {
		return ErrSlotTaken
	}
	return err
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status, notes string, overwriteNotes bool) (*Appointment, error) {
	var row pgx.Row
	if overwriteNotes {
		row = r.conn(ctx).QueryRow(ctx, `
			UPDATE appointment SET status=$2, notes=$3, updated_at=NOW()
			WHERE id = $1
			RETURNING `+apptCols, id, status, notes)
	} else {
		row = r.conn(ctx).QueryRow(ctx, `
			UPDATE appointment SET status=$2, updated_at=NOW()
			WHERE id = $1
			RETURNING `+apptCols, id, status)
	}
	return r.scanAppt(row)
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	return err
}

func (r *appointmentRepoPG) FindConflict(ctx context.Context, doctorIDs []string, date, timeSlot string, excludeID uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + apptCols + ` FROM appointment
		WHERE doctor_id = ANY($1) AND date = $2 AND "time" = $3 AND status <> 'cancelled'`
	args := []interface{}{doctorIDs, date, timeSlot}
	if excludeID != uuid.Nil {
		query += ` AND id <> $4`
		args = append(args, excludeID)
	}
	a, err := r.scanAppt(r.conn(ctx).QueryRow(ctx, query+` LIMIT 1`, args...))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *appointmentRepoPG) BookedTimes(ctx context.Context, doctorIDs []string, date string) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT "time" FROM appointment
		WHERE doctor_id = ANY($1) AND date = $2 AND status <> 'cancelled'`, doctorIDs, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorIDs []string, status, date string) ([]*Appointment, error) {
	query := `SELECT ` + apptCols + ` FROM appointment WHERE doctor_id = ANY($1)`
	args := []interface{}{doctorIDs}
	idx := 2

	if status != "" {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, status)
		idx++
	}
	if date != "" {
		query += fmt.Sprintf(` AND date = $%d`, idx)
		args = append(args, date)
		idx++
	}
	query += ` ORDER BY date ASC, ` + slotOrder + ` ASC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID, status string) ([]*Appointment, error) {
	query := `SELECT ` + apptCols + ` FROM appointment WHERE patient_id = $1`
	args := []interface{}{patientID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY date ASC, ` + slotOrder + ` ASC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	query := `SELECT ` + apptCols + ` FROM appointment WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM appointment WHERE 1=1`
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
	if p, ok := params["status"]; ok {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["start_date"]; ok {
		query += fmt.Sprintf(` AND date >= $%d`, idx)
		countQuery += fmt.Sprintf(` AND date >= $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["end_date"]; ok {
		query += fmt.Sprintf(` AND date <= $%d`, idx)
		countQuery += fmt.Sprintf(` AND date <= $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY date ASC, `+slotOrder+` ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}
