package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"acceptapi/internal/model"
	"acceptapi/internal/service"
)

// documentView is a document with its derived lifecycle status.
type documentView struct {
	*model.AcceptanceDocument
	Status string `json:"status"`
}

func viewOf(doc *model.AcceptanceDocument) documentView {
	return documentView{AcceptanceDocument: doc, Status: doc.Status(time.Now())}
}

// IssueDocument godoc
// @Summary Issue a document for acceptance
// @Description Renders the agreement PDF, stores it and returns the one-time acceptance link.
// @Tags documents
// @Accept json
// @Produce json
// @Param request body service.IssueRequest true "document"
// @Success 201 {object} service.IssueResult
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Security OperatorBearer
// @Router /api/documents [post]
func IssueDocument(svc service.AcceptanceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req service.IssueRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		res, err := svc.Issue(c.UserContext(), req)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// ListDocuments godoc
// @Summary List issued documents
// @Tags documents
// @Produce json
// @Param limit query int false "page size" default(10)
// @Param offset query int false "offset" default(0)
// @Success 200 {object} service.DocumentListResult
// @Failure 400 {object} errorPayload
// @Security OperatorBearer
// @Router /api/documents [get]
func ListDocuments(svc service.AcceptanceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// GetDocument godoc
// @Summary Document status
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} model.AcceptanceDocument
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Security OperatorBearer
// @Router /api/documents/{id} [get]
func GetDocument(svc service.AcceptanceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(viewOf(doc))
	}
}

// ListDeliveries godoc
// @Summary Notification deliveries of a document
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {array} model.Delivery
// @Failure 404 {object} errorPayload
// @Security OperatorBearer
// @Router /api/documents/{id}/deliveries [get]
func ListDeliveries(svc service.AcceptanceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rows, err := svc.Deliveries(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		if rows == nil {
			rows = []model.Delivery{}
		}
		return c.JSON(fiber.Map{"data": rows})
	}
}

// DownloadPDF godoc
// @Summary Redirect to the rendered PDF
// @Tags documents
// @Param id path string true "document id"
// @Success 302
// @Failure 404 {object} errorPayload
// @Security OperatorBearer
// @Router /api/documents/{id}/pdf [get]
func DownloadPDF(svc service.AcceptanceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		u, err := svc.PresignPDF(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Redirect(u, fiber.StatusFound)
	}
}

// RevokeDocument godoc
// @Summary Revoke a pending document
// @Tags documents
// @Param id path string true "document id"
// @Success 204
// @Failure 404 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Security OperatorBearer
// @Router /api/documents/{id} [delete]
func RevokeDocument(svc service.AcceptanceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Revoke(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func documentID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}
