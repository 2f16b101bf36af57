package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
)

// InvitationSubject is the subject of the e-mail asking a recipient to accept.
const InvitationSubject = "Agreement Ready for Acceptance"

// Invitation is the data of the e-mail sent right after issuance.
type Invitation struct {
	ClientName string
	AcceptURL  string
	ShortCode  string
	ExpiresIn  string
	PDFName    string
	PDF        []byte
}

var invitationHTML = htmltemplate.Must(htmltemplate.New("invitation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #212529;">
  <h2>Agreement Ready for Acceptance</h2>
  <p>Hello{{if .ClientName}} {{.ClientName}}{{end}},</p>
  <p>Please review the attached agreement. When you are ready, click the button below to accept it.</p>
  <p style="margin: 30px 0;">
    <a href="{{.AcceptURL}}" style="background-color: #28a745; color: #ffffff; padding: 15px 30px; text-decoration: none; border-radius: 5px; font-size: 18px; font-weight: bold;">I ACCEPT</a>
  </p>
  <p style="font-size: 12px; color: #6c757d;">This link expires in {{.ExpiresIn}}. Document ID: {{.ShortCode}}</p>
</body>
</html>
`))

var invitationText = template.Must(template.New("invitation").Parse(`Hello{{if .ClientName}} {{.ClientName}}{{end}},

Please review the attached agreement. To accept it, open:

{{.AcceptURL}}

This link expires in {{.ExpiresIn}}. Document ID: {{.ShortCode}}
`))

// InvitationMessage renders inv for recipient to.
func InvitationMessage(to string, inv Invitation) (Message, error) {
	var html, text bytes.Buffer
	if err := invitationHTML.Execute(&html, inv); err != nil {
		return Message{}, fmt.Errorf("render invitation html: %w", err)
	}
	if err := invitationText.Execute(&text, inv); err != nil {
		return Message{}, fmt.Errorf("render invitation text: %w", err)
	}
	msg := Message{
		To:      []string{to},
		Subject: InvitationSubject,
		Text:    text.String(),
		HTML:    html.String(),
	}
	if len(inv.PDF) > 0 {
		name := inv.PDFName
		if name == "" {
			name = "agreement.pdf"
		}
		msg.Attachments = append(msg.Attachments, Attachment{Name: name, ContentType: "application/pdf", Data: inv.PDF})
	}
	return msg, nil
}
