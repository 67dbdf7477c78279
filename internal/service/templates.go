package service

import (
	"bytes"
	"fmt"
	"text/template"

	"portfolio/backend/internal/domain"
)

// messageTemplate 一封邮件的主题与正文模板
type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

// templateData 模板可用的字段
type templateData struct {
	Name    string
	Email   string
	Message string
}

var notificationTemplate = mustTemplate("notification",
	`New contact from {{.Name}}`,
	`Name: {{.Name}}
Email: {{.Email}}

Message:
{{.Message}}
`)

// 确认邮件按语言区分，缺省为意大利语
var acknowledgmentTemplates = map[domain.Locale]messageTemplate{
	domain.LocaleItalian: mustTemplate("ack-it",
		`Grazie per avermi contattato, {{.Name}}`,
		`Ciao {{.Name}},

grazie per il tuo messaggio! L'ho ricevuto e ti risponderò il prima possibile.

Per conferma, ecco cosa mi hai scritto:

{{.Message}}

A presto!
`),
	domain.LocaleEnglish: mustTemplate("ack-en",
		`Thanks for reaching out, {{.Name}}`,
		`Hi {{.Name}},

thanks for your message! I received it and will get back to you as soon as possible.

For your records, here is what you wrote:

{{.Message}}

Talk soon!
`),
}

func mustTemplate(name, subject, body string) messageTemplate {
	return messageTemplate{
		subject: template.Must(template.New(name + "-subject").Parse(subject)),
		body:    template.Must(template.New(name + "-body").Parse(body)),
	}
}

// render 渲染主题与正文
func (t messageTemplate) render(data templateData) (subject, body string, err error) {
	var buf bytes.Buffer
	if err := t.subject.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render subject %s: %w", t.subject.Name(), err)
	}
	subject = buf.String()

	buf.Reset()
	if err := t.body.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render body %s: %w", t.body.Name(), err)
	}
	return subject, buf.String(), nil
}

func acknowledgmentTemplate(locale domain.Locale) messageTemplate {
	if tmpl, ok := acknowledgmentTemplates[locale]; ok {
		return tmpl
	}
	return acknowledgmentTemplates[domain.DefaultLocale]
}
