package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/NadafAyan/BloodShare/internal/api/dto"
	"github.com/NadafAyan/BloodShare/internal/domain"
	"github.com/NadafAyan/BloodShare/internal/service"
	apperrors "github.com/NadafAyan/BloodShare/pkg/util/errorutil"
)

// DonorsHandler serves the public donor endpoints.
type DonorsHandler struct {
	service *service.DonorService
}

// NewDonorsHandler constructs handler.
func NewDonorsHandler(donorService *service.DonorService) *DonorsHandler {
	return &DonorsHandler{service: donorService}
}

// Register POST /api/donors/register.
func (h *DonorsHandler) Register(c *fiber.Ctx) error {
	var raw map[string]any
	if err := c.BodyParser(&raw); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if raw == nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	donor, err := h.service.Register(c.UserContext(), raw)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewDonorResponse(donor)})
}

// Search GET /api/donors. Only approved donors are ever returned.
func (h *DonorsHandler) Search(c *fiber.Ctx) error {
	raw, err := parseSearchQuery(c)
	if err != nil {
		return err
	}
	raw.Status = ""
	in, _, err := h.service.ParseSearch(raw)
	if err != nil {
		return err
	}
	donors, err := h.service.SearchPublic(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDonorList(donors), "meta": pageMeta(h.service, in, donors)})
}

func parseSearchQuery(c *fiber.Ctx) (service.RawSearch, error) {
	var q dto.DonorSearchQuery
	if err := c.QueryParser(&q); err != nil {
		return service.RawSearch{}, apperrors.NewValidationError("invalid query parameters",
			map[string]any{"query": "limit and offset must be whole numbers"})
	}
	return service.RawSearch{
		BloodGroup:   q.BloodGroup,
		City:         q.City,
		Availability: q.Availability,
		Status:       q.Status,
		Limit:        q.Limit,
		Offset:       q.Offset,
	}, nil
}

func pageMeta(svc *service.DonorService, in service.SearchInput, donors []domain.Donor) dto.PageMeta {
	limit, offset := svc.Window(in)
	return dto.PageMeta{Limit: limit, Offset: offset, Count: len(donors)}
}

func parseDonorID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid donor id", map[string]any{"id": "must be a positive integer"})
	}
	return id, nil
}
