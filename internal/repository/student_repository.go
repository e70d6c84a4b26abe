package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chuanghiduoc/progress-mailer/pkg/database"
)

const studentColumns = `id, student_name, registration_no, semester, cgpa, credits, email,
	status, status_updated_at, created_at, updated_at`

type studentRepository struct {
	db   DBTX
	pool *pgxpool.Pool
	tx   *database.TxManager
}

func NewStudentRepository(pool *pgxpool.Pool) StudentRepository {
	return &studentRepository{
		db:   pool,
		pool: pool,
		tx:   database.NewTxManager(pool),
	}
}

func (r *studentRepository) queryOne(ctx context.Context, sql string, args ...any) (*Student, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	s, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Student])
	if err != nil {
		return nil, wrapErr(err)
	}
	return s, nil
}

func (r *studentRepository) queryMany(ctx context.Context, sql string, args ...any) ([]Student, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Student])
}

func (r *studentRepository) GetByID(ctx context.Context, id int64) (*Student, error) {
	return r.queryOne(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
}

func (r *studentRepository) GetByIDs(ctx context.Context, ids []int64) ([]Student, error) {
	if len(ids) == 0 {
		return []Student{}, nil
	}
	rows, err := r.queryMany(ctx, `SELECT `+studentColumns+` FROM students WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return orderByIDs(rows, ids), nil
}

// whereClause renders filter as a WHERE clause with positional args.
func whereClause(f StudentFilter) (string, []any) {
	var conds []string
	var args []any

	switch f.Status {
	case StatusPending:
		conds = append(conds, "status = ''")
	case StatusDelivered:
		conds = append(conds, "status LIKE 'delivered%'")
	case StatusFailed:
		conds = append(conds, "status = 'failed'")
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(student_name ILIKE $%d OR registration_no ILIKE $%d OR email ILIKE $%d)", n, n, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *studentRepository) List(ctx context.Context, filter StudentFilter, limit, offset int32) ([]Student, error) {
	where, args := whereClause(filter)
	args = append(args, limit, offset)
	sql := fmt.Sprintf(`SELECT %s FROM students%s ORDER BY id LIMIT $%d OFFSET $%d`,
		studentColumns, where, len(args)-1, len(args))
	return r.queryMany(ctx, sql, args...)
}

func (r *studentRepository) Count(ctx context.Context, filter StudentFilter) (int64, error) {
	where, args := whereClause(filter)
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM students`+where, args...).Scan(&n); err != nil {
		return 0, wrapErr(err)
	}
	return n, nil
}

func (r *studentRepository) Create(ctx context.Context, p StudentParams) (*Student, error) {
	return r.queryOne(ctx, `
		INSERT INTO students (student_name, registration_no, semester, cgpa, credits, email)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+studentColumns,
		p.Name, p.RegistrationNo, p.Semester, p.GPA, p.Credits, p.Email)
}

func (r *studentRepository) Upsert(ctx context.Context, p StudentParams) (*Student, error) {
	return r.queryOne(ctx, `
		INSERT INTO students (student_name, registration_no, semester, cgpa, credits, email)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (registration_no) DO UPDATE SET
			student_name = EXCLUDED.student_name,
			semester     = EXCLUDED.semester,
			cgpa         = EXCLUDED.cgpa,
			credits      = EXCLUDED.credits,
			email        = EXCLUDED.email,
			updated_at   = NOW()
		RETURNING `+studentColumns,
		p.Name, p.RegistrationNo, p.Semester, p.GPA, p.Credits, p.Email)
}

func (r *studentRepository) Update(ctx context.Context, id int64, p StudentParams) (*Student, error) {
	return r.queryOne(ctx, `
		UPDATE students SET
			student_name = $2, registration_no = $3, semester = $4,
			cgpa = $5, credits = $6, email = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING `+studentColumns,
		id, p.Name, p.RegistrationNo, p.Semester, p.GPA, p.Credits, p.Email)
}

func (r *studentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return wrapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return wrapErr(pgx.ErrNoRows)
	}
	return nil
}

func (r *studentRepository) UpdateStatuses(ctx context.Context, updates []StatusUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return r.tx.WithTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, u := range updates {
			batch.Queue(`UPDATE students SET status = $2, status_updated_at = $3, updated_at = NOW() WHERE id = $1`,
				u.ID, u.Status, u.At)
		}
		br := tx.SendBatch(ctx, batch)
		for range updates {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("update status: %w", wrapErr(err))
			}
		}
		return br.Close()
	})
}

func (r *studentRepository) Stats(ctx context.Context) (StudentStats, error) {
	var s StudentStats
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status LIKE 'delivered%'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = '')
		FROM students`).Scan(&s.Total, &s.Delivered, &s.Failed, &s.Pending)
	if err != nil {
		return StudentStats{}, wrapErr(err)
	}
	return s, nil
}

func (r *studentRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
