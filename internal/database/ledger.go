package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Ledger entities: staff, wage payments, expenses, debtors. Plain
// create/update/delete rows with no lifecycle beyond a paid flag.

const staffColumns = `id, restaurant_id, name, login, role, daily_wage, is_active, created_at`

func scanStaff(row scanner) (Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.RestaurantID, &s.Name, &s.Login, &s.Role, &s.DailyWage, &s.IsActive, &s.CreatedAt)
	return s, err
}

func (q *Queries) ListStaff(ctx context.Context, restaurantID uuid.UUID) ([]Staff, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+staffColumns+`
		FROM staff
		WHERE restaurant_id = $1
		ORDER BY created_at DESC`,
		restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type CreateStaffParams struct {
	RestaurantID uuid.UUID
	Name         string
	Login        string
	Role         string
	DailyWage    pgtype.Numeric
}

func (q *Queries) CreateStaff(ctx context.Context, arg CreateStaffParams) (Staff, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO staff (restaurant_id, name, login, role, daily_wage, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING `+staffColumns,
		arg.RestaurantID, arg.Name, arg.Login, arg.Role, arg.DailyWage)
	return scanStaff(row)
}

type UpdateStaffParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Role         string
	DailyWage    pgtype.Numeric
	IsActive     bool
}

func (q *Queries) UpdateStaff(ctx context.Context, arg UpdateStaffParams) (Staff, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE staff
		SET name = $3, role = $4, daily_wage = $5, is_active = $6
		WHERE id = $1 AND restaurant_id = $2
		RETURNING `+staffColumns,
		arg.ID, arg.RestaurantID, arg.Name, arg.Role, arg.DailyWage, arg.IsActive)
	return scanStaff(row)
}

type DeleteStaffParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) DeleteStaff(ctx context.Context, arg DeleteStaffParams) error {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM staff WHERE id = $1 AND restaurant_id = $2`,
		arg.ID, arg.RestaurantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const wagePaymentColumns = `id, staff_id, amount, note, paid_by, paid_date`

func scanWagePayment(row scanner) (WagePayment, error) {
	var w WagePayment
	err := row.Scan(&w.ID, &w.StaffID, &w.Amount, &w.Note, &w.PaidBy, &w.PaidDate)
	return w, err
}

func (q *Queries) ListWagePaymentsByStaff(ctx context.Context, staffID uuid.UUID) ([]WagePayment, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+wagePaymentColumns+`
		FROM wage_payments
		WHERE staff_id = $1
		ORDER BY paid_date DESC`,
		staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WagePayment
	for rows.Next() {
		w, err := scanWagePayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type CreateWagePaymentParams struct {
	StaffID uuid.UUID
	Amount  pgtype.Numeric
	Note    pgtype.Text
	PaidBy  string
}

func (q *Queries) CreateWagePayment(ctx context.Context, arg CreateWagePaymentParams) (WagePayment, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO wage_payments (staff_id, amount, note, paid_by)
		VALUES ($1, $2, $3, $4)
		RETURNING `+wagePaymentColumns,
		arg.StaffID, arg.Amount, arg.Note, arg.PaidBy)
	return scanWagePayment(row)
}

type SumWagePaymentsParams struct {
	RestaurantID uuid.UUID
	StartDate    time.Time
	EndDate      time.Time
}

func (q *Queries) SumWagePayments(ctx context.Context, arg SumWagePaymentsParams) (pgtype.Numeric, error) {
	var total pgtype.Numeric
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(wp.amount), 0)
		FROM wage_payments wp
		JOIN staff s ON s.id = wp.staff_id
		WHERE s.restaurant_id = $1 AND wp.paid_date >= $2 AND wp.paid_date < $3`,
		arg.RestaurantID, arg.StartDate, arg.EndDate).Scan(&total)
	return total, err
}

const expenseColumns = `id, restaurant_id, name, amount, expense_date, created_by, created_at`

func scanExpense(row scanner) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.RestaurantID, &e.Name, &e.Amount, &e.ExpenseDate, &e.CreatedBy, &e.CreatedAt)
	return e, err
}

func (q *Queries) ListExpenses(ctx context.Context, restaurantID uuid.UUID) ([]Expense, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE restaurant_id = $1
		ORDER BY expense_date DESC`,
		restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type CreateExpenseParams struct {
	RestaurantID uuid.UUID
	Name         string
	Amount       pgtype.Numeric
	ExpenseDate  pgtype.Date
	CreatedBy    string
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO expenses (restaurant_id, name, amount, expense_date, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+expenseColumns,
		arg.RestaurantID, arg.Name, arg.Amount, arg.ExpenseDate, arg.CreatedBy)
	return scanExpense(row)
}

type DeleteExpenseParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) DeleteExpense(ctx context.Context, arg DeleteExpenseParams) error {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM expenses WHERE id = $1 AND restaurant_id = $2`,
		arg.ID, arg.RestaurantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type SumExpensesParams struct {
	RestaurantID uuid.UUID
	StartDate    pgtype.Date
	EndDate      pgtype.Date
}

func (q *Queries) SumExpenses(ctx context.Context, arg SumExpensesParams) (pgtype.Numeric, error) {
	var total pgtype.Numeric
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE restaurant_id = $1 AND expense_date >= $2 AND expense_date <= $3`,
		arg.RestaurantID, arg.StartDate, arg.EndDate).Scan(&total)
	return total, err
}

const debtorColumns = `id, restaurant_id, name, phone, amount, due_date, paid, paid_at, created_by, created_at`

func scanDebtor(row scanner) (Debtor, error) {
	var d Debtor
	err := row.Scan(&d.ID, &d.RestaurantID, &d.Name, &d.Phone, &d.Amount, &d.DueDate, &d.Paid, &d.PaidAt, &d.CreatedBy, &d.CreatedAt)
	return d, err
}

func (q *Queries) ListDebtors(ctx context.Context, restaurantID uuid.UUID) ([]Debtor, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+debtorColumns+`
		FROM debtors
		WHERE restaurant_id = $1
		ORDER BY created_at DESC`,
		restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Debtor
	for rows.Next() {
		d, err := scanDebtor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type CreateDebtorParams struct {
	RestaurantID uuid.UUID
	Name         string
	Phone        pgtype.Text
	Amount       pgtype.Numeric
	DueDate      pgtype.Date
	CreatedBy    pgtype.UUID
}

func (q *Queries) CreateDebtor(ctx context.Context, arg CreateDebtorParams) (Debtor, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO debtors (restaurant_id, name, phone, amount, due_date, paid, created_by)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
		RETURNING `+debtorColumns,
		arg.RestaurantID, arg.Name, arg.Phone, arg.Amount, arg.DueDate, arg.CreatedBy)
	return scanDebtor(row)
}

type UpdateDebtorParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Phone        pgtype.Text
	Amount       pgtype.Numeric
	DueDate      pgtype.Date
}

func (q *Queries) UpdateDebtor(ctx context.Context, arg UpdateDebtorParams) (Debtor, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE debtors
		SET name = $3, phone = $4, amount = $5, due_date = $6
		WHERE id = $1 AND restaurant_id = $2
		RETURNING `+debtorColumns,
		arg.ID, arg.RestaurantID, arg.Name, arg.Phone, arg.Amount, arg.DueDate)
	return scanDebtor(row)
}

type MarkDebtorPaidParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) MarkDebtorPaid(ctx context.Context, arg MarkDebtorPaidParams) (Debtor, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE debtors
		SET paid = TRUE, paid_at = now()
		WHERE id = $1 AND restaurant_id = $2
		RETURNING `+debtorColumns,
		arg.ID, arg.RestaurantID)
	return scanDebtor(row)
}

type DeleteDebtorParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) DeleteDebtor(ctx context.Context, arg DeleteDebtorParams) error {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM debtors WHERE id = $1 AND restaurant_id = $2`,
		arg.ID, arg.RestaurantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
