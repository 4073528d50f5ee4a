package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/mvallois/rendez/internal/model"
)

// All appointment messages share one details block so the confirmation,
// reschedule, and reminder bodies never drift apart.

func kindLabel(k model.Kind) string {
	switch k {
	case model.KindInPerson:
		return "In person"
	case model.KindPhone:
		return "Phone call"
	case model.KindVideo:
		return "Video call"
	default:
		return string(k)
	}
}

func detailLines(a model.Appointment) []string {
	lines := []string{
		fmt.Sprintf("When: %s", a.ScheduledAt.Format("Monday, January 2, 2006 at 15:04 MST")),
		fmt.Sprintf("Duration: %d minutes", a.DurationMinutes),
		fmt.Sprintf("Type: %s", kindLabel(a.Kind)),
	}
	if a.Location != "" {
		lines = append(lines, fmt.Sprintf("Location: %s", a.Location))
	}
	if a.MeetingLink != "" {
		lines = append(lines, fmt.Sprintf("Meeting link: %s", a.MeetingLink))
	}
	return lines
}

func render(a model.Appointment, intro string) (textBody, htmlBody string) {
	details := detailLines(a)

	var text strings.Builder
	fmt.Fprintf(&text, "Hello %s %s,\n\n%s\n\n", a.FirstName, a.LastName, intro)
	for _, line := range details {
		text.WriteString(line)
		text.WriteString("\n")
	}
	text.WriteString("\nSee you soon!\n")

	var htm strings.Builder
	fmt.Fprintf(&htm, "<p>Hello %s %s,</p><p>%s</p><ul>",
		html.EscapeString(a.FirstName), html.EscapeString(a.LastName), html.EscapeString(intro))
	for _, line := range details {
		fmt.Fprintf(&htm, "<li>%s</li>", html.EscapeString(line))
	}
	htm.WriteString("</ul><p>See you soon!</p>")

	return text.String(), htm.String()
}

// RenderConfirmation builds the message sent right after booking.
func RenderConfirmation(a model.Appointment) (subject, textBody, htmlBody string) {
	subject = "Appointment confirmation"
	textBody, htmlBody = render(a, "Your appointment has been booked.")
	return subject, textBody, htmlBody
}

// RenderReschedule builds the message sent when the appointment date changes.
func RenderReschedule(a model.Appointment) (subject, textBody, htmlBody string) {
	subject = "Appointment updated"
	textBody, htmlBody = render(a, "Your appointment has been rescheduled.")
	return subject, textBody, htmlBody
}

// RenderReminder builds the message dispatched by the reminder scheduler.
func RenderReminder(a model.Appointment) (subject, textBody, htmlBody string) {
	subject = "Appointment reminder"
	textBody, htmlBody = render(a, "This is a reminder for your upcoming appointment.")
	return subject, textBody, htmlBody
}
