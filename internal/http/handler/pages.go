package handler

import (
	"bytes"
	"html/template"

	"github.com/gofiber/fiber/v2"
)

const pageStyle = `
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; display: flex;
         justify-content: center; align-items: center; min-height: 100vh; padding: 20px;
         background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); }
  .container { background: #fff; border-radius: 20px; padding: 40px; max-width: 500px; width: 100%;
               box-shadow: 0 20px 60px rgba(0,0,0,0.3); text-align: center; }
  h1 { color: #1a202c; margin-bottom: 10px; font-size: 28px; }
  .doc-info { color: #718096; margin-bottom: 30px; font-size: 14px; }
  .confirm-btn { background: #48bb78; color: #fff; border: none; padding: 18px 60px; font-size: 18px;
                 font-weight: bold; border-radius: 10px; cursor: pointer; width: 100%; max-width: 300px; }
  .loading, .success, .failure { display: none; margin-top: 20px; }
  .success { color: #48bb78; font-size: 18px; }
  .failure { color: #c53030; }
`

var confirmTmpl = template.Must(template.New("confirm").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Document Acceptance</title>
  <style>{{.Style}}</style>
</head>
<body>
  <div class="container">
    <h1>Accept Agreement?</h1>
    <p class="doc-info">Document ID: <strong>{{.ShortCode}}</strong></p>
    {{if .ClientName}}<p class="doc-info">For: <strong>{{.ClientName}}</strong></p>{{end}}
    <button class="confirm-btn" onclick="acceptDocument()">Yes, I Accept</button>
    <div class="loading"><p>Processing...</p></div>
    <div class="success"><p><strong>Successfully Accepted!</strong></p><p>You can close this window</p></div>
    <div class="failure"><p></p></div>
  </div>
  <script>
    async function acceptDocument() {
      const btn = document.querySelector('.confirm-btn');
      const loading = document.querySelector('.loading');
      const success = document.querySelector('.success');
      const failure = document.querySelector('.failure');
      btn.style.display = 'none';
      loading.style.display = 'block';
      try {
        const response = await fetch('/api/accept', {
          method: 'POST',
          headers: {'Content-Type': 'application/json'},
          body: JSON.stringify({
            doc_id: {{.DocumentID}},
            token: {{.Token}},
            timestamp: new Date().toISOString(),
            timezone: Intl.DateTimeFormat().resolvedOptions().timeZone
          })
        });
        loading.style.display = 'none';
        if (response.ok) {
          success.style.display = 'block';
          return;
        }
        const body = await response.json();
        failure.querySelector('p').textContent = body.error ? body.error.message : 'Acceptance failed';
        failure.style.display = 'block';
      } catch (error) {
        alert('Error accepting document. Please try again.');
        btn.style.display = 'block';
        loading.style.display = 'none';
      }
    }
  </script>
</body>
</html>
`))

var resultTmpl = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <style>{{.Style}}</style>
</head>
<body>
  <div class="container">
    <h1>{{.Title}}</h1>
    <p class="doc-info">{{.Message}}</p>
    {{if .ShortCode}}<p class="doc-info">Document ID: <strong>{{.ShortCode}}</strong></p>{{end}}
  </div>
</body>
</html>
`))

type confirmData struct {
	Style      template.CSS
	DocumentID string
	Token      string
	ShortCode  string
	ClientName string
}

type resultData struct {
	Style     template.CSS
	Title     string
	Message   string
	ShortCode string
}

func renderHTML(c *fiber.Ctx, status int, t *template.Template, data any) error {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return err
	}
	c.Type("html")
	return c.Status(status).Send(buf.Bytes())
}

func renderConfirm(c *fiber.Ctx, d confirmData) error {
	d.Style = pageStyle
	return renderHTML(c, fiber.StatusOK, confirmTmpl, d)
}

func renderResult(c *fiber.Ctx, status int, d resultData) error {
	d.Style = pageStyle
	return renderHTML(c, status, resultTmpl, d)
}
