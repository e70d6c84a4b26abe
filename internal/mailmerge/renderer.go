package mailmerge

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

const subjectPrefix = "Academic Progress – "

// RendererConfig holds the static, non-recipient parts of the message.
type RendererConfig struct {
	ProgramLabel    string
	Department      string
	DepartmentShort string
	SenderName      string
	PortalURL       string
	ContactHours    string
}

// DefaultRendererConfig returns the values used when nothing is configured.
func DefaultRendererConfig() RendererConfig {
	return RendererConfig{
		ProgramLabel:    "B.Tech (CSE)",
		Department:      "Department of Computer Science and Engineering",
		DepartmentShort: "Department of CSE",
		PortalURL:       "https://mujslcm.jaipur.manipal.edu/",
		ContactHours:    "10:00 AM to 5:00 PM",
	}
}

const plainBody = `Dear Parent/Guardian,

Greetings from the {{.Department}}.

I hope this message finds you well. I am writing to you in my capacity as the student mentor of your ward, {{.Name}} (Registration No.: {{.RegistrationNo}}), who is currently pursuing the {{.Semester}} semester of the {{.ProgramLabel}} programme.

ACADEMIC SUMMARY:
=================
CGPA: {{.GPA}}
Total Earned Credits: {{.Credits}}

You may also view and monitor your ward's academic performance through the student portal at:
{{.PortalURL}}

The {{.DepartmentShort}} is extending full academic support to assist students in their academic journey. As the student mentor, I will continue to provide all possible academic guidance and support to your ward.

If you wish to discuss further about his/her academic progress, please feel free to contact me during official working hours ({{.ContactHours}}).

Thank you for your cooperation and support.

Regards,
{{.SenderName}}
{{.Department}}`

const structuredBody = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #1a73e8;">Academic Progress Report</h2>
  <p>Dear Parent/Guardian,</p>
  <p>Greetings from the {{.Department}}.</p>
  <p>I hope this message finds you well. I am writing to you in my capacity as the student mentor of your ward,
  <strong>{{.Name}}</strong> (Registration No.: <strong>{{.RegistrationNo}}</strong>),
  who is currently pursuing the <strong>{{.Semester}}</strong> semester of the {{.ProgramLabel}} programme.</p>
  <h3>Academic Summary:</h3>
  <table style="border-collapse: collapse; width: 100%; margin: 20px 0;">
    <tr style="background: #f8f9fa;">
      <td style="padding: 10px; border: 1px solid #ddd;"><strong>CGPA</strong></td>
      <td style="padding: 10px; border: 1px solid #ddd;">{{.GPA}}</td>
    </tr>
    <tr>
      <td style="padding: 10px; border: 1px solid #ddd;"><strong>Total Earned Credits</strong></td>
      <td style="padding: 10px; border: 1px solid #ddd;">{{.Credits}}</td>
    </tr>
  </table>
  <p>You may also view and monitor your ward's academic performance through the student portal at:<br>
  <a href="{{.PortalURL}}">{{.PortalURL}}</a></p>
  <p>The {{.DepartmentShort}} is extending full academic support to assist students in their academic journey.
  As the student mentor, I will continue to provide all possible academic guidance and support to your ward.</p>
  <p>If you wish to discuss further about his/her academic progress, please feel free to contact me during
  official working hours ({{.ContactHours}}).</p>
  <p>Thank you for your cooperation and support.</p>
  <p>Regards,<br>
  <strong>{{.SenderName}}</strong><br>
  {{.Department}}</p>
</div>`

var (
	plainTmpl = texttemplate.Must(texttemplate.New("plain").Parse(plainBody))
	htmlTmpl  = htmltemplate.Must(htmltemplate.New("html").Parse(structuredBody))
)

// Renderer merges a Recipient into the progress-report template.
// It is safe for concurrent use.
type Renderer struct {
	cfg RendererConfig
}

func NewRenderer(cfg RendererConfig) *Renderer {
	return &Renderer{cfg: cfg}
}

type templateData struct {
	Recipient
	RendererConfig
}

// Subject returns the subject line for r.
func (rn *Renderer) Subject(r Recipient) string {
	return subjectPrefix + rn.cfg.ProgramLabel + " - " + r.Name
}

// Render produces the message for r. Empty fields render as empty strings.
func (rn *Renderer) Render(r Recipient) (Message, error) {
	data := templateData{Recipient: r, RendererConfig: rn.cfg}

	var text bytes.Buffer
	if err := plainTmpl.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render plain body: %w", err)
	}

	var html bytes.Buffer
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render html body: %w", err)
	}

	return Message{
		Subject: rn.Subject(r),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
