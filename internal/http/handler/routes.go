package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"acceptapi/internal/config"
	"acceptapi/internal/http/middleware"
	"acceptapi/internal/service"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	DB      *sql.DB
	Service service.AcceptanceService
	// OperatorSecret signs operator bearer tokens for /api/documents.
	OperatorSecret []byte
	// DocuSignHMACKey verifies Connect deliveries; without it every delivery is rejected.
	DocuSignHMACKey string
	Gatherer        prometheus.Gatherer
}

// AppConfig is the Fiber configuration the routes expect. The proxy header is only
// believed for requests whose peer is listed in TrustedProxies, so c.IP() is safe to record.
func AppConfig(h config.HTTPConfig) fiber.Config {
	return fiber.Config{
		ErrorHandler:            ErrorHandler(),
		ProxyHeader:             h.ProxyHeader,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          h.TrustedProxies,
	}
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", Metrics(d.Gatherer))
	}

	// Operator API
	ops := app.Group("/api/documents", middleware.OperatorAuth(d.OperatorSecret))
	ops.Post("/", IssueDocument(d.Service))
	ops.Get("/", ListDocuments(d.Service))
	ops.Get("/:id", GetDocument(d.Service))
	ops.Get("/:id/deliveries", ListDeliveries(d.Service))
	ops.Get("/:id/pdf", DownloadPDF(d.Service))
	ops.Delete("/:id", RevokeDocument(d.Service))

	// Recipient-facing acceptance paths; the token is the credential.
	app.Get("/a/:doc_id", ConfirmPage(d.Service))
	app.Post("/api/accept", AcceptDocument(d.Service))
	app.Get("/accept", AcceptLink(d.Service))
	app.Post("/pdf-webhook", PDFWebhook(d.Service))
	app.Post("/webhook/docusign", DocuSignWebhook(d.Service, d.DocuSignHMACKey))
}
