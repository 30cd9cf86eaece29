package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"spry/internal/core"
	"spry/internal/services"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object. Malformed bodies and type mismatches
// become validation errors naming the offending field where possible.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return core.NewValidationError(typeErr.Field, fmt.Sprintf("%s has the wrong type", typeErr.Field))
		case errors.As(err, &maxErr):
			return core.NewValidationError("body", "request body too large")
		case errors.Is(err, io.EOF):
			return core.NewValidationError("body", "request body is required")
		}
		return core.NewValidationError("body", "invalid JSON body")
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func rawText(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}

// parseAmountField parses a required amount given as a JSON number or a
// numeric string.
func parseAmountField(field string, raw json.RawMessage) (core.Money, error) {
	if len(raw) == 0 || isNull(raw) {
		return core.Money{}, core.NewValidationError(field, field+" is required")
	}
	m, err := core.ParseAmount(rawText(raw))
	if errors.Is(err, core.ErrAmountRange) {
		return core.Money{}, core.NewValidationError(field, field+" is out of range")
	}
	if err != nil {
		return core.Money{}, core.NewValidationError(field, field+" must be a number")
	}
	return m, nil
}

// parseOptionalAmount returns nil when the field was not sent.
func parseOptionalAmount(field string, raw json.RawMessage) (*core.Money, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	m, err := parseAmountField(field, raw)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// parseLenientAmount turns missing or non-numeric input into zero and
// rejects negative or out-of-range values.
func parseLenientAmount(field string, raw json.RawMessage) (core.Money, error) {
	if len(raw) == 0 || isNull(raw) {
		return core.Money{}, nil
	}
	m, err := core.ParseLenientAmount(rawText(raw))
	switch {
	case errors.Is(err, core.ErrAmountRange):
		return core.Money{}, core.NewValidationError(field, field+" is out of range")
	case err != nil:
		return core.Money{}, core.NewValidationError(field, field+" cannot be negative")
	}
	return m, nil
}

type createEntryRequest struct {
	Type     string          `json:"type"`
	Amount   json.RawMessage `json:"amount"`
	Category string          `json:"category"`
	Note     string          `json:"note"`
	Title    string          `json:"title"`
	GoalID   *int64          `json:"goal_id"`
}

func (req createEntryRequest) toNewEntry() (services.NewEntry, error) {
	typ, err := core.ParseEntryType(req.Type)
	if err != nil {
		return services.NewEntry{}, err
	}
	amount, err := parseAmountField("amount", req.Amount)
	if err != nil {
		return services.NewEntry{}, err
	}
	if req.GoalID != nil && *req.GoalID <= 0 {
		return services.NewEntry{}, core.NewValidationError("goal_id", "goal_id must be a positive integer")
	}
	return services.NewEntry{
		Type:     typ,
		Amount:   amount,
		Category: req.Category,
		Note:     strings.TrimSpace(req.Note),
		Title:    strings.TrimSpace(req.Title),
		GoalID:   req.GoalID,
	}, nil
}

// updateEntryRequest distinguishes an absent goal_id from an explicit null,
// which detaches the entry from its goal.
type updateEntryRequest struct {
	Type     *string         `json:"type"`
	Amount   json.RawMessage `json:"amount"`
	Category *string         `json:"category"`
	Note     *string         `json:"note"`
	Title    *string         `json:"title"`
	GoalID   json.RawMessage `json:"goal_id"`
}

func (req updateEntryRequest) toPatch() (services.EntryPatch, error) {
	var patch services.EntryPatch
	if req.Type != nil {
		typ, err := core.ParseEntryType(*req.Type)
		if err != nil {
			return patch, err
		}
		patch.Type = &typ
	}
	amount, err := parseOptionalAmount("amount", req.Amount)
	if err != nil {
		return patch, err
	}
	patch.Amount = amount
	patch.Category = req.Category
	if req.Note != nil {
		note := strings.TrimSpace(*req.Note)
		patch.Note = &note
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		patch.Title = &title
	}

	switch {
	case len(req.GoalID) == 0:
	case isNull(req.GoalID):
		patch.ClearGoal = true
	default:
		var id int64
		if err := json.Unmarshal(req.GoalID, &id); err != nil || id <= 0 {
			return patch, core.NewValidationError("goal_id", "goal_id must be a positive integer")
		}
		patch.GoalID = &id
	}
	return patch, nil
}

type createGoalRequest struct {
	Note       string          `json:"note"`
	GoalAmount json.RawMessage `json:"goal_amount"`
}

type updateGoalRequest struct {
	Note            *string         `json:"note"`
	GoalAmount      json.RawMessage `json:"goal_amount"`
	AllocatedAmount json.RawMessage `json:"allocated_amount"`
	Completed       *bool           `json:"completed"`
}

func (req updateGoalRequest) toPatch() (services.GoalPatch, error) {
	var patch services.GoalPatch
	var err error
	patch.Note = req.Note
	if patch.GoalAmount, err = parseOptionalAmount("goal_amount", req.GoalAmount); err != nil {
		return patch, err
	}
	if len(req.AllocatedAmount) > 0 {
		m, err := core.ParseAmount(rawText(req.AllocatedAmount))
		if err != nil || isNull(req.AllocatedAmount) {
			return patch, core.NewValidationError("allocated_amount", "Invalid allocated_amount value")
		}
		patch.AllocatedAmount = &m
	}
	patch.Completed = req.Completed
	return patch, nil
}

type allocationRequest struct {
	Category string          `json:"category"`
	Amount   json.RawMessage `json:"amount_allocated"`
}

type budgetRequest struct {
	MonthlyIncome json.RawMessage     `json:"monthly_income"`
	Allocations   []allocationRequest `json:"allocations"`
}

func (req budgetRequest) toSubmission() (services.BudgetSubmission, error) {
	var sub services.BudgetSubmission
	if req.Allocations == nil {
		return sub, core.NewValidationError("allocations", "allocations must be an array")
	}
	income, err := parseOptionalAmount("monthly_income", req.MonthlyIncome)
	if err != nil {
		return sub, err
	}
	sub.TotalIncome = income

	sub.Allocations = make([]core.Allocation, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		amount, err := parseLenientAmount("amount_allocated", a.Amount)
		if err != nil {
			return sub, err
		}
		sub.Allocations = append(sub.Allocations, core.Allocation{Category: a.Category, Amount: amount})
	}
	return sub, nil
}

type entryResponse struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	SessionID int64      `json:"session_id"`
	Type      string     `json:"type"`
	Amount    core.Money `json:"amount"`
	Category  string     `json:"category"`
	Title     string     `json:"title"`
	Note      string     `json:"note"`
	GoalID    *int64     `json:"goal_id"`
	CreatedAt time.Time  `json:"created_at"`
}

func newEntryResponse(e core.Entry) entryResponse {
	return entryResponse{
		ID:        e.ID,
		UserID:    e.UserID,
		SessionID: e.SessionID,
		Type:      string(e.Type),
		Amount:    e.Amount,
		Category:  e.Category,
		Title:     e.Title,
		Note:      e.Note,
		GoalID:    e.GoalID,
		CreatedAt: e.CreatedAt.UTC(),
	}
}

type goalResponse struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Note            string     `json:"note"`
	GoalAmount      core.Money `json:"goal_amount"`
	AllocatedAmount core.Money `json:"allocated_amount"`
	Completed       bool       `json:"completed"`
	CompletedAt     *time.Time `json:"completed_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

func newGoalResponse(g core.SavingsGoal) goalResponse {
	return goalResponse{
		ID:              g.ID,
		UserID:          g.UserID,
		Note:            g.Note,
		GoalAmount:      g.GoalAmount,
		AllocatedAmount: g.AllocatedAmount,
		Completed:       g.Completed,
		CompletedAt:     g.CompletedAt,
		CreatedAt:       g.CreatedAt.UTC(),
	}
}

type allocationResponse struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount_allocated"`
}

type budgetResponse struct {
	SessionID         int64                `json:"sessionId"`
	MonthlyIncome     core.Money           `json:"monthly_income"`
	UnallocatedIncome core.Money           `json:"unallocated_income"`
	Allocations       []allocationResponse `json:"allocations"`
}

func newBudgetResponse(b services.Budget) budgetResponse {
	out := budgetResponse{
		SessionID:         b.Session.ID,
		MonthlyIncome:     b.Session.TotalIncome,
		UnallocatedIncome: b.Session.UnallocatedIncome,
		Allocations:       make([]allocationResponse, 0, len(b.Allocations)),
	}
	for _, a := range b.Allocations {
		out.Allocations = append(out.Allocations, allocationResponse{Category: a.Category, Amount: a.Amount})
	}
	return out
}

type summaryResponse struct {
	TotalIncome       core.Money `json:"totalIncome"`
	TotalExpense      core.Money `json:"totalExpense"`
	TotalSavings      core.Money `json:"totalSavings"`
	Remaining         core.Money `json:"remaining"`
	AchievedGoalCount int        `json:"achievedGoalCount"`
}

type breakdownResponse struct {
	Category  string     `json:"category"`
	Type      string     `json:"type"`
	Spent     core.Money `json:"spent"`
	Allocated core.Money `json:"allocated"`
	Remaining core.Money `json:"remaining"`
}
