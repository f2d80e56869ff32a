package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	VerificationSubject  = "Verify your email"
	PasswordResetSubject = "Reset your password"
)

func render(name string, data interface{}) (string, error) {
	buf := new(bytes.Buffer)
	if err := templates.ExecuteTemplate(buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

// RenderVerificationEmail builds the body of the signup verification email.
func RenderVerificationEmail(username, link string) (string, error) {
	return render("verification_email.html", map[string]string{
		"Username": username,
		"Link":     link,
	})
}

// RenderPasswordResetEmail builds the body of the password reset email.
func RenderPasswordResetEmail(link string) (string, error) {
	return render("password_reset_email.html", map[string]string{
		"Link": link,
	})
}
