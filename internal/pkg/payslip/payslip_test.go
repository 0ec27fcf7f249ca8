package payslip

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	out, err := Render(Payslip{
		EmployeeName: "Ana Souza",
		PeriodStart:  time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:    time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
		Currency:     "BRL",
		Lines: []Line{
			{Description: "Base salary", Credit: true, Amount: 300000},
			{Description: "Meal allowance", Credit: true, Amount: 20000},
			{Description: "Health plan", Amount: 5000},
			{Description: "Loan #l1 — Installment 1/3", Amount: 40000},
		},
		GrossPay:   320000,
		Deductions: 45000,
		NetPay:     275000,
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 500)
}
