package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/collections-sequencer/internal/api/dto"
	"github.com/spec-kit/collections-sequencer/internal/auth"
	"github.com/spec-kit/collections-sequencer/internal/domain"
	"github.com/spec-kit/collections-sequencer/internal/repository"
	"github.com/spec-kit/collections-sequencer/internal/service"
	apperrors "github.com/spec-kit/collections-sequencer/pkg/util"
)

// SequencesHandler exposes sequence commands and reads.
type SequencesHandler struct {
	service *service.SequenceService
}

// NewSequencesHandler constructs handler.
func NewSequencesHandler(sequenceService *service.SequenceService) *SequencesHandler {
	return &SequencesHandler{service: sequenceService}
}

// Create POST /sequences.
func (h *SequencesHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateSequenceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	if strings.TrimSpace(req.AccountID) == "" || strings.TrimSpace(req.Balance) == "" {
		return apperrors.NewInvalidArgument("account_id and balance required", nil)
	}
	balance, err := decimal.NewFromString(req.Balance)
	if err != nil {
		return apperrors.NewInvalidArgument("balance is not a valid amount", map[string]any{"balance": req.Balance})
	}

	seq, err := h.service.CreateSequence(c.Context(), req.AccountID, balance)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sequenceSummary(seq)})
}

// List GET /sequences.
func (h *SequencesHandler) List(c *fiber.Ctx) error {
	filter := parseSequenceQuery(c)
	sequences, err := h.service.List(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.SequenceSummary, 0, len(sequences))
	for i := range sequences {
		items = append(items, sequenceSummary(&sequences[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /sequences/:id.
func (h *SequencesHandler) Get(c *fiber.Ctx) error {
	detail, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sequenceDetail(detail)})
}

// Pause POST /sequences/:id/pause.
func (h *SequencesHandler) Pause(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	seq, err := h.service.Pause(c.Context(), c.Params("id"), principal.OperatorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sequenceSummary(seq)})
}

// Resume POST /sequences/:id/resume.
func (h *SequencesHandler) Resume(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	seq, err := h.service.Resume(c.Context(), c.Params("id"), principal.OperatorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sequenceSummary(seq)})
}

// Escalate POST /sequences/:id/escalate.
func (h *SequencesHandler) Escalate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	seq, result, err := h.service.Escalate(c.Context(), c.Params("id"), principal.OperatorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.EscalateResponse{
		FromOffset: result.FromOffset,
		ToOffset:   result.ToOffset,
		Status:     seq.Status,
	}})
}

// RecordPayment POST /sequences/:id/payments.
func (h *SequencesHandler) RecordPayment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	var req dto.RecordPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return apperrors.NewInvalidArgument("amount is not a valid amount", map[string]any{"amount": req.Amount})
	}

	seq, outcome, err := h.service.RecordPayment(c.Context(), c.Params("id"), amount, principal.OperatorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.PaymentOutcomeResponse{
		NewBalance: outcome.Result.NewBalance.String(),
		OverpaidBy: outcome.Result.OverpaidBy.String(),
		Terminated: outcome.Result.Terminated,
		Status:     seq.Status,
	}})
}

// RecordStepResponse POST /sequences/:id/steps/:offset/response.
func (h *SequencesHandler) RecordStepResponse(c *fiber.Ctx) error {
	offset, err := strconv.Atoi(c.Params("offset"))
	if err != nil {
		return apperrors.NewInvalidArgument("offset must be an integer", nil)
	}
	var req dto.StepResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgument("invalid payload", nil)
	}
	if strings.TrimSpace(req.Response) == "" {
		return apperrors.NewInvalidArgument("response required", nil)
	}

	seq, err := h.service.RecordStepResponse(c.Context(), c.Params("id"), offset, req.Response)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sequenceSummary(seq)})
}

func parseSequenceQuery(c *fiber.Ctx) repository.SequenceFilter {
	filter := repository.SequenceFilter{}
	if account := c.Query("account_id"); account != "" {
		filter.AccountID = &account
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.SequenceStatus(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func sequenceSummary(seq *domain.Sequence) dto.SequenceSummary {
	return dto.SequenceSummary{
		ID:                seq.ID,
		AccountID:         seq.AccountID,
		TotalBalance:      seq.TotalBalance.String(),
		StartedAt:         seq.StartedAt,
		CurrentStepOffset: seq.CurrentStepOffset,
		Status:            seq.Status,
		CreatedAt:         seq.CreatedAt,
		UpdatedAt:         seq.UpdatedAt,
	}
}

func sequenceDetail(detail *service.SequenceDetail) dto.SequenceDetailResponse {
	seq := detail.Sequence
	steps := make([]dto.StepRecordResponse, 0, len(seq.Steps))
	for _, rec := range seq.Steps {
		steps = append(steps, dto.StepRecordResponse{
			DayOffset: rec.DayOffset,
			Status:    rec.Status,
			SentAt:    rec.SentAt,
			Action:    rec.Action,
			Response:  rec.Response,
			Manual:    rec.Manual,
		})
	}
	payments := make([]dto.PaymentResponse, 0, len(detail.Payments))
	for _, payment := range detail.Payments {
		payments = append(payments, dto.PaymentResponse{
			ID:           payment.ID,
			Amount:       payment.Amount.String(),
			OverpaidBy:   payment.OverpaidBy.String(),
			BalanceAfter: payment.BalanceAfter.String(),
			ReceivedAt:   payment.ReceivedAt,
		})
	}
	history := make([]dto.HistoryResponse, 0, len(detail.History))
	for _, entry := range detail.History {
		history = append(history, dto.HistoryResponse{
			ID:            entry.ID,
			ChangeType:    entry.ChangeType,
			ChangedByType: entry.ChangedByType,
			ChangedByID:   entry.ChangedByID,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return dto.SequenceDetailResponse{
		SequenceSummary: sequenceSummary(seq),
		PausedAt:        seq.PausedAt,
		Projection: dto.ProjectionResponse{
			ElapsedDays:    detail.Projection.ElapsedDays,
			StepIndex:      detail.Projection.StepIndex,
			DayInStep:      detail.Projection.DayInStep,
			NextActionDate: detail.Projection.NextActionDate,
		},
		Steps:    steps,
		Payments: payments,
		History:  history,
	}
}
