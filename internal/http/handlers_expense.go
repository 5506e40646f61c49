package http

import (
	"errors"
	"net/http"
	"strconv"

	"spendtracker/internal/core"
	"spendtracker/internal/log"
)

// Form field names posted by the add-expense form.
const (
	fieldName     = "expenseName"
	fieldCategory = "category"
	fieldAmount   = "expenseAmount"
)

// validationMessage maps a rejected add to the text shown under the form.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyName):
		return "Please input expense name!"
	case errors.Is(err, core.ErrNameTooLong):
		return "Expense name is too long (max " + strconv.Itoa(core.MaxNameLength) + " characters)."
	case errors.Is(err, core.ErrUnknownCategory):
		return "Please select a valid category."
	case errors.Is(err, core.ErrNegativeAmount):
		return "Expense amount cannot be negative."
	case errors.Is(err, core.ErrInvalidAmount):
		return "Please enter a valid expense amount."
	default:
		return "Invalid expense."
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		if errors.Is(err, ErrBodyTooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "Request too large.").Write(w)
			return
		}
		BadRequestError("Could not read the form.").Write(w)
		return
	}

	if s.detector.InspectForm(p.Values()) {
		logger.WarnContext(ctx, "Suspicious form input",
			log.FieldComponent, log.ComponentSecurity,
			log.FieldClientIP, s.detector.ExtractClientIP(r))
	}

	name, rawCategory, rawAmount := p.Get(fieldName), p.Get(fieldCategory), p.Get(fieldAmount)
	reject := func(msg string, err error) {
		s.metrics.validationFailures.Add(1)
		logger.InfoContext(ctx, "Expense rejected",
			log.FieldOperation, log.OpValidate,
			log.FieldError, err)
		UnprocessableEntityError(msg).Write(w)
	}

	switch {
	case name == "":
		reject("Please input expense name!", core.ErrEmptyName)
		return
	case rawCategory == "":
		reject("Please input category!", core.ErrUnknownCategory)
		return
	case rawAmount == "":
		reject("Please input expense amount!", core.ErrInvalidAmount)
		return
	}

	category, err := core.ParseCategory(rawCategory)
	if err != nil {
		reject(validationMessage(err), err)
		return
	}
	amount, err := core.ParseAmount(rawAmount)
	if err != nil {
		reject(validationMessage(err), err)
		return
	}

	entry, err := s.ledger.AddExpense(ctx, name, category, amount)
	if err != nil {
		if errors.Is(err, core.ErrInvalidEntry) {
			reject(validationMessage(err), err)
			return
		}
		logger.ErrorContext(ctx, "Add expense failed", log.FieldError, err, log.FieldOperation, log.OpAdd)
		InternalServerError("Could not save the expense.").Write(w)
		return
	}
	s.metrics.expensesAdded.Add(1)

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	version := s.currentVersion(r)
	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerLedgerChanged(version).
		TriggerFormReset().
		TriggerSuccessNotification("Added " + entry.Name + " (" + formatMoney(entry.Amount, s.currency) + ")").
		Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		BadRequestError("Invalid expense id.").Write(w)
		return
	}

	entry, removed, err := s.ledger.RemoveExpense(ctx, id)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Remove expense failed",
			log.FieldError, err,
			log.FieldEntryID, id,
			log.FieldOperation, log.OpRemove)
		InternalServerError("Could not delete the expense.").Write(w)
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	resp := NewHTMXResponse()
	if removed {
		s.metrics.expensesRemoved.Add(1)
		resp.TriggerLedgerChanged(s.currentVersion(r)).
			TriggerInfoNotification("Deleted " + entry.Name)
	}
	resp.Write(w)
}

// currentVersion is best effort; a failed snapshot only costs the client a
// redundant refresh.
func (s *Server) currentVersion(r *http.Request) int64 {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		return 0
	}
	return snap.Version
}

func (s *Server) handleExpensesTable(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ledger.Snapshot(r.Context())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Snapshot failed", log.FieldError, err, log.FieldOperation, log.OpList)
		InternalServerError("Could not load expenses.").Write(w)
		return
	}

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}

	w.Header().Set("Cache-Control", "no-cache")
	s.render(w, r, http.StatusOK, "expenses_table", buildTable(snap, page, s.currency))
}
