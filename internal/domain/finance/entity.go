package finance

import "time"

// Kind identifies what a payroll-generated transaction pays for.
type Kind string

const (
	KindNetPay Kind = "net_pay"
	KindINSS   Kind = "inss"
	KindFGTS   Kind = "fgts"
)

// Direction is the accounts side of a transaction.
type Direction string

const (
	DirectionPayable    Direction = "payable"
	DirectionReceivable Direction = "receivable"
)

type Transaction struct {
	ID          string
	CompanyID   string
	PayrollID   string
	BatchID     string
	Kind        Kind
	Direction   Direction
	Description string
	Amount      int64
	DueDate     time.Time
	IsSettled   bool
	IssuedAt    time.Time
}

// PayrollPosting carries the closed run amounts that are booked as transactions.
type PayrollPosting struct {
	PayrollID   string
	CompanyID   string
	PeriodStart time.Time
	PeriodEnd   time.Time
	NetPay      int64
	InssAmount  int64
	FgtsAmount  int64
}
