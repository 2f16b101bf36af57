// Package pdf renders the agreement a recipient is asked to accept.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

var ErrMissingURL = errors.New("pdf: accept url is required")

// Page holds what goes on the rendered agreement.
type Page struct {
	Title      string
	ClientName string
	Content    string
	AcceptURL  string
	ShortCode  string
	TTL        time.Duration
	IssuedAt   time.Time

	// Form, when set, adds a fillable acceptance checkbox and a submit button.
	Form *Form
	// ApproveAnchor is drawn invisibly where an e-signature approve tab should land.
	ApproveAnchor string
}

// Renderer produces Letter-sized PDFs with a clickable accept button and a QR code
// pointing at the same URL.
type Renderer struct {
	// Creator is written into the document info dictionary.
	Creator string
	// QRSize is the QR code edge length in pixels before scaling.
	QRSize int
}

func NewRenderer(creator string) *Renderer {
	return &Renderer{Creator: creator, QRSize: 256}
}

const (
	margin      = 54.0
	buttonW     = 180.0
	buttonH     = 40.0
	qrEdge      = 96.0
	lineHeight  = 16.0
	boxPadding  = 12.0
	checkEdge   = 14.0
	submitW     = 170.0
	submitH     = 22.0
	formRowH    = 30.0
	defaultName = "Agreement"
)

// Render returns the PDF bytes for p.
func (r *Renderer) Render(p Page) ([]byte, error) {
	if strings.TrimSpace(p.AcceptURL) == "" {
		return nil, ErrMissingURL
	}
	title := p.Title
	if title == "" {
		title = defaultName
	}

	doc := fpdf.New("P", "pt", "Letter", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle(title, true)
	if r.Creator != "" {
		doc.SetCreator(r.Creator, true)
	}
	if !p.IssuedAt.IsZero() {
		doc.SetCreationDate(p.IssuedAt)
	}
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, margin)
	doc.AddPage()

	pageW, _ := doc.GetPageSize()
	contentW := pageW - 2*margin

	doc.SetFont("Helvetica", "B", 20)
	doc.SetTextColor(33, 37, 41)
	header := title
	if p.ClientName != "" {
		header = fmt.Sprintf("%s for %s", title, p.ClientName)
	}
	doc.MultiCell(contentW, 26, tr(header), "", "L", false)
	doc.Ln(8)

	doc.SetFont("Helvetica", "", 12)
	for _, para := range strings.Split(p.Content, "\n") {
		if strings.TrimSpace(para) == "" {
			doc.Ln(lineHeight / 2)
			continue
		}
		doc.MultiCell(contentW, lineHeight, tr(para), "", "L", false)
	}
	doc.Ln(24)

	layout := r.acceptBox(doc, tr, p, contentW)

	footer := fmt.Sprintf("This acceptance link expires in %s. Document ID: %s", humanTTL(p.TTL), p.ShortCode)
	doc.SetFont("Helvetica", "I", 9)
	doc.SetTextColor(108, 117, 125)
	doc.Ln(16)
	doc.MultiCell(contentW, 12, tr(footer), "", "C", false)

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	if p.Form == nil {
		return buf.Bytes(), nil
	}
	out, err := attachForm(buf.Bytes(), *p.Form, layout)
	if err != nil {
		return nil, fmt.Errorf("attach form: %w", err)
	}
	return out, nil
}

// acceptBox draws the framed area holding the button and the QR code. With a form it also
// draws the checkbox row and reports where the widgets go.
func (r *Renderer) acceptBox(doc *fpdf.Fpdf, tr func(string) string, p Page, contentW float64) formLayout {
	baseH := qrEdge + 2*boxPadding + 20
	boxH := baseH
	if p.Form != nil {
		boxH += formRowH
	}
	_, pageH := doc.GetPageSize()
	if doc.GetY()+boxH > pageH-margin {
		doc.AddPage()
	}
	x, y := margin, doc.GetY()

	doc.SetDrawColor(40, 167, 69)
	doc.SetLineWidth(1.5)
	doc.Rect(x, y, contentW, boxH, "D")

	doc.SetXY(x+boxPadding, y+boxPadding)
	doc.SetFont("Helvetica", "B", 12)
	doc.SetTextColor(33, 37, 41)
	doc.CellFormat(contentW-qrEdge-3*boxPadding, 18, tr("Click below to accept this agreement:"), "", 2, "L", false, 0, "")

	btnX, btnY := x+boxPadding, y+boxPadding+30
	doc.SetFillColor(40, 167, 69)
	doc.SetTextColor(255, 255, 255)
	doc.SetFont("Helvetica", "B", 16)
	doc.SetXY(btnX, btnY)
	doc.CellFormat(buttonW, buttonH, "I ACCEPT", "", 0, "C", true, 0, p.AcceptURL)

	if p.ApproveAnchor != "" {
		doc.SetFont("Helvetica", "", 1)
		doc.SetTextColor(255, 255, 255)
		doc.Text(btnX+buttonW+24, btnY+buttonH/2, p.ApproveAnchor)
	}

	doc.SetTextColor(108, 117, 125)
	doc.SetFont("Helvetica", "", 9)
	doc.SetXY(btnX, btnY+buttonH+4)
	doc.CellFormat(buttonW, 12, tr("or scan the code with your phone"), "", 0, "L", false, 0, "")

	if png, err := qrcode.Encode(p.AcceptURL, qrcode.Medium, r.qrSize()); err == nil {
		name := "qr-" + p.ShortCode
		opt := fpdf.ImageOptions{ImageType: "PNG"}
		doc.RegisterImageOptionsReader(name, opt, bytes.NewReader(png))
		doc.ImageOptions(name, x+contentW-boxPadding-qrEdge, y+boxPadding, qrEdge, qrEdge, false, opt, 0, p.AcceptURL)
	} else {
		doc.SetError(fmt.Errorf("encode qr code: %w", err))
	}

	var layout formLayout
	if p.Form != nil {
		rowY := y + baseH - boxPadding/2
		cx := x + boxPadding
		doc.SetDrawColor(33, 37, 41)
		doc.SetLineWidth(1)
		doc.Rect(cx, rowY, checkEdge, checkEdge, "D")
		doc.SetTextColor(33, 37, 41)
		doc.SetFont("Helvetica", "", 10)
		doc.SetXY(cx+checkEdge+6, rowY)
		doc.CellFormat(contentW-submitW-checkEdge-4*boxPadding, checkEdge, tr("I have read and accept this agreement"), "", 0, "L", false, 0, "")

		sx, sy := x+contentW-boxPadding-submitW, rowY-(submitH-checkEdge)/2
		doc.SetFillColor(33, 37, 41)
		doc.SetTextColor(255, 255, 255)
		doc.SetFont("Helvetica", "B", 10)
		doc.SetXY(sx, sy)
		doc.CellFormat(submitW, submitH, "SUBMIT ACCEPTANCE", "", 0, "C", true, 0, "")

		layout = formLayout{
			page:     doc.PageNo(),
			checkbox: rect{cx, pageH - (rowY + checkEdge), cx + checkEdge, pageH - rowY},
			submit:   rect{sx, pageH - (sy + submitH), sx + submitW, pageH - sy},
		}
	}

	doc.SetXY(margin, y+boxH)
	return layout
}

func (r *Renderer) qrSize() int {
	if r.QRSize <= 0 {
		return 256
	}
	return r.QRSize
}

// humanTTL prints whole days when ttl is a multiple of a day, hours otherwise.
func humanTTL(ttl time.Duration) string {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if ttl%(24*time.Hour) == 0 {
		days := int(ttl / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	hours := int(math.Ceil(ttl.Hours()))
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
