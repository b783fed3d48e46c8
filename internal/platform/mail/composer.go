package mail

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	subjectAccountCreated = "New Account"
	subjectPasswordReset  = "Thiết lập lại mật khẩu"
)

//go:embed templates/*.md.tmpl
var templateFS embed.FS

// Composer renders credential emails from markdown templates.
type Composer struct {
	loginURL  string
	templates *template.Template
	markdown  goldmark.Markdown
	policy    *bluemonday.Policy
}

// NewComposer parses the embedded templates. loginURL is quoted in every message.
func NewComposer(loginURL string) (*Composer, error) {
	tmpl, err := template.New("mail").
		Funcs(template.FuncMap{"md": escapeMarkdown}).
		ParseFS(templateFS, "templates/*.md.tmpl")
	if err != nil {
		return nil, fmt.Errorf("mail: parse templates: %w", err)
	}
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &Composer{
		loginURL:  strings.TrimSpace(loginURL),
		templates: tmpl,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Linkify),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: policy,
	}, nil
}

// AccountCreated tells a new user their username and initial password.
func (c *Composer) AccountCreated(to, username, password string) (Message, error) {
	body, err := c.render("account_created.md.tmpl", map[string]string{
		"Username": username,
		"Password": password,
		"LoginURL": c.loginURL,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subjectAccountCreated, HTML: body}, nil
}

// PasswordReset tells a user the password an administrator generated for them.
func (c *Composer) PasswordReset(to, password string) (Message, error) {
	body, err := c.render("password_reset.md.tmpl", map[string]string{
		"Password": password,
		"LoginURL": c.loginURL,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subjectPasswordReset, HTML: body}, nil
}

func (c *Composer) render(name string, data any) (string, error) {
	var source bytes.Buffer
	if err := c.templates.ExecuteTemplate(&source, name, data); err != nil {
		return "", fmt.Errorf("mail: execute %s: %w", name, err)
	}
	var out bytes.Buffer
	if err := c.markdown.Convert(source.Bytes(), &out); err != nil {
		return "", fmt.Errorf("mail: render %s: %w", name, err)
	}
	return c.policy.Sanitize(out.String()), nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "!", `\!`, "|", `\|`, "~", `\~`,
)

func escapeMarkdown(value string) string {
	return markdownEscaper.Replace(value)
}
