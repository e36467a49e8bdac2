package notify

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/hugh/taskhub/internal/database/models"
)

//go:embed templates
var templatesFS embed.FS

var templates = template.Must(
	template.New("").Funcs(template.FuncMap{
		"description": describe,
		"due":         formatDue,
		"label":       label,
	}).ParseFS(templatesFS, "templates/*.tmpl"),
)

// Message is a rendered plain-text email
type Message struct {
	To      string
	Subject string
	Body    string
}

// Compose renders the email for a task event
func Compose(n Notification) (Message, error) {
	var name, subject string
	switch n.Event {
	case EventTaskCreated:
		name, subject = "task_created.tmpl", "New task: "+n.Title
	case EventTaskCompleted:
		name, subject = "task_completed.tmpl", "Task completed: "+n.Title
	default:
		return Message{}, fmt.Errorf("unknown event %q", n.Event)
	}

	body, err := render(name, n)
	if err != nil {
		return Message{}, err
	}
	return Message{To: n.Recipient, Subject: subject, Body: body}, nil
}

// OverdueDigest lists one owner's overdue tasks
type OverdueDigest struct {
	Name  string
	Email string
	Tasks []models.Task
}

func ComposeOverdue(d OverdueDigest) (Message, error) {
	body, err := render("overdue.tmpl", d)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      d.Email,
		Subject: fmt.Sprintf("You have %d overdue task(s)", len(d.Tasks)),
		Body:    body,
	}, nil
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func describe(d *string) string {
	if d == nil || strings.TrimSpace(*d) == "" {
		return "No description"
	}
	return *d
}

func formatDue(d *models.Date) string {
	if d == nil || d.IsZero() {
		return "No due date"
	}
	return d.Format("02/01/2006")
}

// label turns an enum value such as in_progress into "In progress"
func label(v interface{}) string {
	s := strings.ReplaceAll(fmt.Sprint(v), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
