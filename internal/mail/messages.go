package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// Notice carries the values rendered into reminder and overdue emails.
type Notice struct {
	RoommateName  string
	Email         string
	SupplyName    string
	DaysRemaining int
	ExpiresAt     time.Time
	DashboardURL  string
}

var reminderTmpl = template.Must(template.New("reminder").Parse(`<h2>Hi {{.RoommateName}},</h2>
<p>It is your turn to buy <strong>{{.SupplyName}}</strong>.</p>
<p><strong>Days remaining:</strong> {{.DaysRemaining}}</p>
<p><strong>Runs out on:</strong> {{.ExpiresAt.Format "Monday, 2 January"}}</p>
<p>Once you have bought it, mark it in the app so the next roommate can take their turn.</p>
<p><a href="{{.DashboardURL}}" style="background-color:#3b82f6;color:#fff;padding:10px 20px;text-decoration:none;border-radius:5px">Open dashboard</a></p>
<p style="color:#666;font-size:12px">Piso 3 household</p>
`))

var overdueTmpl = template.Must(template.New("overdue").Parse(`<h2 style="color:#dc2626">Heads up {{.RoommateName}}!</h2>
<p><strong>{{.SupplyName}}</strong> {{if lt .DaysRemaining 0}}ran out on {{.ExpiresAt.Format "Monday, 2 January"}}{{else}}runs out <strong>today</strong>{{end}}.</p>
<p>Please buy it as soon as possible and mark it in the app.</p>
<p><a href="{{.DashboardURL}}" style="background-color:#dc2626;color:#fff;padding:10px 20px;text-decoration:none;border-radius:5px">Open dashboard</a></p>
<p style="color:#666;font-size:12px">Piso 3 household</p>
`))

// ReminderMessage renders the "your turn is coming up" email.
func ReminderMessage(n Notice) (Message, error) {
	return render(reminderTmpl, n, fmt.Sprintf("Reminder: it's your turn to buy %s", n.SupplyName))
}

// OverdueMessage renders the "supply runs out today" email.
func OverdueMessage(n Notice) (Message, error) {
	subject := fmt.Sprintf("Urgent: %s runs out today", n.SupplyName)
	if n.DaysRemaining < 0 {
		subject = fmt.Sprintf("Urgent: %s has run out", n.SupplyName)
	}
	return render(overdueTmpl, n, subject)
}

func render(tmpl *template.Template, n Notice, subject string) (Message, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, n); err != nil {
		return Message{}, fmt.Errorf("rendering %s mail: %w", tmpl.Name(), err)
	}
	return Message{
		To:      n.Email,
		Subject: subject,
		HTML:    strings.TrimSpace(buf.String()),
	}, nil
}
