package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/NadafAyan/BloodShare/internal/api/dto"
	"github.com/NadafAyan/BloodShare/internal/domain"
	"github.com/NadafAyan/BloodShare/internal/service"
	apperrors "github.com/NadafAyan/BloodShare/pkg/util/errorutil"
)

// AdminHandler serves operator endpoints: the full donor view, the approval
// queue and decisions.
type AdminHandler struct {
	service  *service.DonorService
	validate *validator.Validate
}

// NewAdminHandler constructs handler.
func NewAdminHandler(donorService *service.DonorService) *AdminHandler {
	return &AdminHandler{service: donorService, validate: validator.New()}
}

// Search GET /api/admin/donors.
func (h *AdminHandler) Search(c *fiber.Ctx) error {
	raw, err := parseSearchQuery(c)
	if err != nil {
		return err
	}
	in, status, err := h.service.ParseSearch(raw)
	if err != nil {
		return err
	}
	donors, err := h.service.SearchOperator(c.UserContext(), in, status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDonorList(donors), "meta": pageMeta(h.service, in, donors)})
}

// Pending GET /api/admin/donors/pending.
func (h *AdminHandler) Pending(c *fiber.Ctx) error {
	raw, err := parseSearchQuery(c)
	if err != nil {
		return err
	}
	in, _, err := h.service.ParseSearch(service.RawSearch{Limit: raw.Limit, Offset: raw.Offset})
	if err != nil {
		return err
	}
	donors, err := h.service.ListPending(c.UserContext(), in.Limit, in.Offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDonorList(donors), "meta": pageMeta(h.service, in, donors)})
}

// Get GET /api/admin/donors/:id.
func (h *AdminHandler) Get(c *fiber.Ctx) error {
	id, err := parseDonorID(c)
	if err != nil {
		return err
	}
	donor, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDonorResponse(donor)})
}

// Decide POST /api/admin/donors/:id/decision.
func (h *AdminHandler) Decide(c *fiber.Ctx) error {
	id, err := parseDonorID(c)
	if err != nil {
		return err
	}
	var req dto.DecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validate.Struct(req); err != nil {
		return apperrors.NewValidationError("invalid decision",
			map[string]any{"decision": "Decision must be approve or reject"})
	}
	return h.decide(c, id, req.Decision)
}

// LegacyApprove POST /api/donors/:id/approve, kept for the admin page that
// posts the target status instead of a verb.
func (h *AdminHandler) LegacyApprove(c *fiber.Ctx) error {
	id, err := parseDonorID(c)
	if err != nil {
		return err
	}
	var req dto.LegacyApproveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validate.Struct(req); err != nil {
		return apperrors.NewValidationError("invalid status",
			map[string]any{"status": "Status must be approved or rejected"})
	}
	return h.decide(c, id, req.Status)
}

// Delete DELETE /api/admin/donors/:id.
func (h *AdminHandler) Delete(c *fiber.Ctx) error {
	id, err := parseDonorID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AdminHandler) decide(c *fiber.Ctx, id int64, verdict string) error {
	decision, ok := domain.ParseDecision(verdict)
	if !ok {
		return apperrors.NewValidationError("invalid decision", map[string]any{"decision": verdict})
	}
	donor, err := h.service.Decide(c.UserContext(), id, decision)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDonorResponse(donor)})
}
