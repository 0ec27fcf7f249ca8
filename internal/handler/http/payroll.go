package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/erp-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/erp-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/erp-backend-go/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type PayrollHandler interface {
	// Runs
	CreatePayroll(w http.ResponseWriter, r *http.Request)
	GetPayroll(w http.ResponseWriter, r *http.Request)
	ListPayrolls(w http.ResponseWriter, r *http.Request)
	UpdatePayroll(w http.ResponseWriter, r *http.Request)
	DeletePayroll(w http.ResponseWriter, r *http.Request)

	// Lifecycle
	RecalculatePayroll(w http.ResponseWriter, r *http.Request)
	ClosePayroll(w http.ResponseWriter, r *http.Request)
	ReopenPayroll(w http.ResponseWriter, r *http.Request)

	// Thirteenth salary
	ApplyThirteenthSalary(w http.ResponseWriter, r *http.Request)
	ClearThirteenthSalary(w http.ResponseWriter, r *http.Request)

	// Employees
	RecalculateEmployee(w http.ResponseWriter, r *http.Request)
	SetVacation(w http.ResponseWriter, r *http.Request)
	ClearVacation(w http.ResponseWriter, r *http.Request)
	Payslip(w http.ResponseWriter, r *http.Request)

	// Manual items
	AddItem(w http.ResponseWriter, r *http.Request)
	UpdateItem(w http.ResponseWriter, r *http.Request)
	RemoveItem(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

// urlID reads a UUID path parameter and writes a 400 when it is malformed.
func urlID(w http.ResponseWriter, r *http.Request, param, label string) (string, bool) {
	id := chi.URLParam(r, param)
	if id == "" {
		response.BadRequest(w, label+" is required", nil)
		return "", false
	}
	if !validator.IsValidUUID(id) {
		response.BadRequest(w, "Invalid "+label, nil)
		return "", false
	}
	return id, true
}

// ========== RUNS ==========

func (h *payrollHandlerImpl) CreatePayroll(w http.ResponseWriter, r *http.Request) {
	var req payroll.CreatePayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.payrollService.CreatePayroll(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll created", result)
}

func (h *payrollHandlerImpl) GetPayroll(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Payroll ID")
	if !ok {
		return
	}

	result, err := h.payrollService.GetPayroll(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *payrollHandlerImpl) ListPayrolls(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var filter payroll.PayrollFilter

	if page := query.Get("page"); page != "" {
		p, err := strconv.Atoi(page)
		if err != nil {
			response.BadRequest(w, "Invalid page", nil)
			return
		}
		filter.Page = p
	}
	if limit := query.Get("limit"); limit != "" {
		l, err := strconv.Atoi(limit)
		if err != nil {
			response.BadRequest(w, "Invalid limit", nil)
			return
		}
		filter.Limit = l
	}
	if closed := query.Get("is_closed"); closed != "" {
		c, err := strconv.ParseBool(closed)
		if err != nil {
			response.BadRequest(w, "Invalid is_closed", nil)
			return
		}
		filter.IsClosed = &c
	}
	if year := query.Get("year"); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			response.BadRequest(w, "Invalid year", nil)
			return
		}
		filter.Year = &y
	}

	result, err := h.payrollService.ListPayrolls(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	totalPages := 0
	if result.Limit > 0 {
		totalPages = int((result.TotalCount + int64(result.Limit) - 1) / int64(result.Limit))
	}
	response.SuccessWithMeta(w, result.Data, &response.Meta{
		Page:       result.Page,
		Limit:      result.Limit,
		TotalItems: result.TotalCount,
		TotalPages: totalPages,
	})
}

func (h *payrollHandlerImpl) UpdatePayroll(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Payroll ID")
	if !ok {
		return
	}

	var req payroll.UpdatePayrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = id

	result, err := h.payrollService.UpdatePayroll(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll updated", result)
}

func (h *payrollHandlerImpl) DeletePayroll(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Payroll ID")
	if !ok {
		return
	}

	if err := h.payrollService.DeletePayroll(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll deleted", nil)
}

// ========== LIFECYCLE ==========

func (h *payrollHandlerImpl) RecalculatePayroll(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Payroll ID")
	if !ok {
		return
	}

	result, err := h.payrollService.RecalculatePayroll(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll recalculated", result)
}

func (h *payrollHandlerImpl) ClosePayroll(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Payroll ID")
	if !ok {
		return
	}

	result, err := h.payrollService.ClosePayroll(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll closed", result)
}

func (h *payrollHandlerImpl) ReopenPayroll(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Payroll ID")
	if !ok {
		return
	}

	result, err := h.payrollService.ReopenPayroll(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll reopened", result)
}

// ========== THIRTEENTH SALARY ==========

func (h *payrollHandlerImpl) ApplyThirteenthSalary(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Payroll ID")
	if !ok {
		return
	}

	var req payroll.ThirteenthSalaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.PayrollID = id

	result, err := h.payrollService.ApplyThirteenthSalary(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Thirteenth salary applied", result)
}

func (h *payrollHandlerImpl) ClearThirteenthSalary(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Payroll ID")
	if !ok {
		return
	}

	result, err := h.payrollService.ClearThirteenthSalary(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Thirteenth salary removed", result)
}

// ========== EMPLOYEES ==========

func (h *payrollHandlerImpl) RecalculateEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "employeeId", "Payroll employee ID")
	if !ok {
		return
	}

	result, err := h.payrollService.RecalculateEmployee(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll employee recalculated", result)
}

func (h *payrollHandlerImpl) SetVacation(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "employeeId", "Payroll employee ID")
	if !ok {
		return
	}

	var req payroll.VacationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.PayrollEmployeeID = id

	result, err := h.payrollService.SetVacation(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Vacation set", result)
}

func (h *payrollHandlerImpl) ClearVacation(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "employeeId", "Payroll employee ID")
	if !ok {
		return
	}

	result, err := h.payrollService.ClearVacation(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Vacation removed", result)
}

func (h *payrollHandlerImpl) Payslip(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "employeeId", "Payroll employee ID")
	if !ok {
		return
	}

	pdf, err := h.payrollService.Payslip(r.Context(), id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Attachment(w, "application/pdf", "payslip-"+id+".pdf", pdf)
}

// ========== MANUAL ITEMS ==========

func (h *payrollHandlerImpl) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "employeeId", "Payroll employee ID")
	if !ok {
		return
	}

	var req payroll.CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.PayrollEmployeeID = id

	result, err := h.payrollService.AddItem(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll item created", result)
}

func (h *payrollHandlerImpl) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "itemId", "Payroll item ID")
	if !ok {
		return
	}

	var req payroll.UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = id

	result, err := h.payrollService.UpdateItem(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll item updated", result)
}

func (h *payrollHandlerImpl) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "itemId", "Payroll item ID")
	if !ok {
		return
	}

	if err := h.payrollService.RemoveItem(r.Context(), id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll item removed", nil)
}
