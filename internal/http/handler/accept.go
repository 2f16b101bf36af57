package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"acceptapi/internal/docusign"
	"acceptapi/internal/fdf"
	"acceptapi/internal/model"
	"acceptapi/internal/notify"
	"acceptapi/internal/pdf"
	"acceptapi/internal/service"
)

// AcceptBody is the JSON posted by the confirm page.
type AcceptBody struct {
	DocumentID string `json:"doc_id"`
	Token      string `json:"token"`
	Timestamp  string `json:"timestamp"`
	Timezone   string `json:"timezone"`
}

// deliveryView is the per-channel outcome returned to the accepting client.
type deliveryView struct {
	Channel   string `json:"channel"`
	Delivered bool   `json:"delivered"`
	Attempts  int    `json:"attempts"`
}

func deliveryViews(results []notify.Result) []deliveryView {
	out := make([]deliveryView, len(results))
	for i, r := range results {
		out[i] = deliveryView{Channel: r.Channel, Delivered: r.Delivered, Attempts: r.Attempts}
	}
	return out
}

// clientIP is the peer address, or the proxy header value when the peer is a trusted
// proxy (see AppConfig). X-Forwarded-For from anyone else is ignored.
func clientIP(c *fiber.Ctx) string {
	return c.IP()
}

// ConfirmPage godoc
// @Summary Acceptance confirm page
// @Description Checks the link without consuming it and renders a page with a single accept button.
// @Tags acceptance
// @Produce html
// @Param doc_id path string true "document id"
// @Param token query string true "acceptance token"
// @Success 200 {string} string "HTML page"
// @Failure 403 {string} string "Invalid or expired link"
// @Router /a/{doc_id} [get]
func ConfirmPage(svc service.AcceptanceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("doc_id")
		tok := c.Query("token")
		doc, err := svc.Verify(c.UserContext(), id, tok)
		switch {
		case err == nil:
			return renderConfirm(c, confirmData{
				DocumentID: doc.ID,
				Token:      tok,
				ShortCode:  doc.ShortCode,
				ClientName: doc.ClientName,
			})
		case errors.Is(err, service.ErrAlreadyAccepted):
			d := resultData{Title: "Already Accepted", Message: "This agreement has already been accepted."}
			if doc != nil {
				d.ShortCode = doc.ShortCode
			}
			return renderResult(c, fiber.StatusConflict, d)
		}
		if status, _, _ := serviceError(err); status == fiber.StatusForbidden {
			return c.Status(status).SendString(invalidLinkMessage)
		}
		return err
	}
}

// AcceptDocument godoc
// @Summary Accept a document
// @Description Consumes the acceptance token and notifies every configured channel.
// @Tags acceptance
// @Accept json
// @Produce json
// @Param request body AcceptBody true "credential"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errorPayload
// @Failure 403 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Router /api/accept [post]
func AcceptDocument(svc service.AcceptanceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AcceptBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if body.DocumentID == "" || body.Token == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "doc_id and token are required")
		}

		res, err := svc.Accept(c.UserContext(), service.AcceptRequest{
			DocumentID:      body.DocumentID,
			Token:           body.Token,
			ClientIP:        clientIP(c),
			UserAgent:       c.Get(fiber.HeaderUserAgent),
			ClientTimestamp: body.Timestamp,
			Timezone:        body.Timezone,
			Method:          model.MethodPage,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{
			"status":      "accepted",
			"doc_id":      res.Document.ID,
			"accepted_at": res.Document.AcceptedAt,
			"deliveries":  deliveryViews(res.Deliveries),
		})
	}
}

// AcceptLink godoc
// @Summary One-click acceptance
// @Tags acceptance
// @Produce html
// @Param doc query string true "document id"
// @Param token query string true "acceptance token"
// @Success 200 {string} string "HTML confirmation"
// @Failure 403 {string} string "Invalid or expired link"
// @Router /accept [get]
func AcceptLink(svc service.AcceptanceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.Accept(c.UserContext(), service.AcceptRequest{
			DocumentID: c.Query("doc"),
			Token:      c.Query("token"),
			ClientIP:   clientIP(c),
			UserAgent:  c.Get(fiber.HeaderUserAgent),
			Method:     model.MethodLink,
		})
		if err != nil {
			status, _, _ := serviceError(err)
			switch status {
			case fiber.StatusForbidden:
				return c.Status(status).SendString(invalidLinkMessage)
			case fiber.StatusConflict:
				return renderResult(c, status, resultData{
					Title:   "Already Accepted",
					Message: "This agreement has already been accepted.",
				})
			}
			return err
		}
		return renderResult(c, fiber.StatusOK, resultData{
			Title:     "Thank You!",
			Message:   "Your acceptance has been recorded. You can close this window.",
			ShortCode: res.Document.ShortCode,
		})
	}
}

// PDFWebhook godoc
// @Summary Acceptance from a PDF form submit button
// @Description Accepts an FDF body carrying the doc_id and token fields of the form.
// @Tags acceptance
// @Accept application/vnd.fdf
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} errorPayload
// @Failure 403 {object} errorPayload
// @Failure 415 {object} errorPayload
// @Router /pdf-webhook [post]
func PDFWebhook(svc service.AcceptanceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := c.Body()
		if !fdf.IsFDF(body) {
			return writeError(c, fiber.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "expected an FDF form submission")
		}
		fields, err := fdf.Parse(body)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FDF", "malformed form data")
		}
		id, tok := fields.Get(pdf.FieldDocumentID), fields.Get(pdf.FieldToken)
		if id == "" || tok == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FDF", "doc_id and token fields are required")
		}
		if !fields.Checked(pdf.FieldAccepted) {
			return writeError(c, fiber.StatusBadRequest, "NOT_ACCEPTED", "acceptance box not checked")
		}

		if _, err := svc.Accept(c.UserContext(), service.AcceptRequest{
			DocumentID:      id,
			Token:           tok,
			ClientIP:        clientIP(c),
			UserAgent:       c.Get(fiber.HeaderUserAgent),
			ClientTimestamp: fields.Get("timestamp"),
			Method:          model.MethodPDFForm,
		}); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"status": "accepted"})
	}
}

// DocuSignWebhook godoc
// @Summary DocuSign Connect notifications
// @Description Completion events accept the document behind the envelope. Redeliveries are acknowledged without notifying again.
// @Tags acceptance
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Router /webhook/docusign [post]
func DocuSignWebhook(svc service.AcceptanceService, hmacKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := c.Body()
		if err := docusign.VerifySignature(body, hmacKey, c.Get(docusign.SignatureHeader)); err != nil {
			return writeError(c, fiber.StatusUnauthorized, "INVALID_SIGNATURE", "signature verification failed")
		}
		ev, err := docusign.ParseEvent(body)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_EVENT", "malformed event")
		}

		_, err = svc.AcceptEnvelope(c.UserContext(), ev)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrExpired), errors.Is(err, service.ErrRevoked):
			// terminal; a Connect retry would not change the outcome
		default:
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"status": "received"})
	}
}
