package messages

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/jakechorley/salon-bookings/pkg/core/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// GreetingPlaceholder marks where the per-recipient greeting goes in the HTML body.
// It sits immediately after the opening wrapper element.
const GreetingPlaceholder = "{{greeting}}"

var emailTemplate = template.Must(
	template.New("booking.html").Delims("[[", "]]").ParseFS(templateFS, "templates/booking.html"),
)

type eventStyle struct {
	Title string
	Color string
}

var eventStyles = map[model.EventType]eventStyle{
	model.EventHold:    {Title: "Booking on hold", Color: "#d97706"},
	model.EventConfirm: {Title: "Booking confirmed", Color: "#16a34a"},
	model.EventCancel:  {Title: "Booking cancelled", Color: "#dc2626"},
}

func styleFor(event model.EventType) eventStyle {
	if s, ok := eventStyles[event]; ok {
		return s
	}
	return eventStyle{Title: "Booking update", Color: "#2563eb"}
}

// Title returns the human-readable headline for an event
func Title(event model.EventType) string {
	return styleFor(event).Title
}

// EmailSubject builds the subject line shared by all email recipients
func EmailSubject(d model.BookingDetails, event model.EventType) string {
	return fmt.Sprintf("%s: %s, %s", Title(event), orDash(d.ServiceName), FormatWhen(d))
}

// FormatWhen renders the booking's time range in the business timezone
func FormatWhen(d model.BookingDetails) string {
	loc := d.Location()
	start := d.StartAt.In(loc)
	if d.EndAt.IsZero() {
		return start.Format("Mon 02 Jan 2006, 15:04")
	}
	end := d.EndAt.In(loc)
	if start.YearDay() == end.YearDay() && start.Year() == end.Year() {
		return fmt.Sprintf("%s-%s", start.Format("Mon 02 Jan 2006, 15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s - %s", start.Format("Mon 02 Jan 2006, 15:04"), end.Format("Mon 02 Jan 2006, 15:04"))
}

type emailData struct {
	Title       string
	Color       string
	Service     string
	Duration    int
	When        string
	Staff       string
	Price       string
	Business    string
	Branch      string
	Address     string
	Client      string
	ClientPhone string
	ManageURL   string
	BranchPhone string
}

// BuildEmailHTML renders the shared HTML body. The result still contains
// GreetingPlaceholder; call Personalize per recipient before sending.
func BuildEmailHTML(d model.BookingDetails, event model.EventType) string {
	style := styleFor(event)
	data := emailData{
		Title:       style.Title,
		Color:       style.Color,
		Service:     orDash(d.ServiceName),
		Duration:    d.ServiceDuration,
		When:        FormatWhen(d),
		Staff:       d.StaffName,
		Price:       formatPrice(d),
		Business:    d.BusinessName,
		Branch:      d.BranchName,
		Address:     d.BranchAddress,
		Client:      d.ClientName,
		ClientPhone: d.ClientPhone,
		ManageURL:   d.ManageURL(),
		BranchPhone: d.BranchPhone,
	}

	var body bytes.Buffer
	if err := emailTemplate.Execute(&body, data); err != nil {
		// The template is compiled into the binary; a failure here is a programming error
		panic(fmt.Sprintf("failed to execute booking email template: %v", err))
	}
	return body.String()
}

// Personalize substitutes the greeting for one recipient into a body built by BuildEmailHTML
func Personalize(baseHTML, name string) string {
	greeting := "Hello!"
	if n := strings.TrimSpace(name); n != "" {
		greeting = fmt.Sprintf("Hello, %s!", html.EscapeString(n))
	}
	block := fmt.Sprintf(`<p style="margin:0 0 12px;font-size:15px;">%s</p>`, greeting)
	return strings.Replace(baseHTML, GreetingPlaceholder, block, 1)
}

// BuildEmailText renders the plain-text alternative of the email
func BuildEmailText(d model.BookingDetails, event model.EventType) string {
	var b strings.Builder
	b.WriteString(Title(event))
	b.WriteString("\n\n")
	writeLines(&b, d, "", "")
	if url := d.ManageURL(); url != "" {
		fmt.Fprintf(&b, "\nView booking: %s\n", url)
	}
	return b.String()
}

// BuildWhatsAppText renders the WhatsApp message body using WhatsApp's *bold* markup
func BuildWhatsAppText(d model.BookingDetails, event model.EventType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n\n", Title(event))
	writeLines(&b, d, "*", "*")
	if url := d.ManageURL(); url != "" {
		fmt.Fprintf(&b, "\n%s", url)
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildTelegramText renders the Telegram message body in Telegram's HTML parse mode
func BuildTelegramText(d model.BookingDetails, event model.EventType) string {
	esc := func(s string) string { return html.EscapeString(s) }
	escaped := model.BookingDetails{
		BookingID:       d.BookingID,
		StartAt:         d.StartAt,
		EndAt:           d.EndAt,
		ServiceName:     esc(d.ServiceName),
		ServiceDuration: d.ServiceDuration,
		ServicePrice:    d.ServicePrice,
		StaffName:       esc(d.StaffName),
		BusinessName:    esc(d.BusinessName),
		BranchName:      esc(d.BranchName),
		BranchAddress:   esc(d.BranchAddress),
		BranchPhone:     esc(d.BranchPhone),
		ClientName:      esc(d.ClientName),
		ClientPhone:     esc(d.ClientPhone),
		Timezone:        d.Timezone,
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n\n", esc(Title(event)))
	writeLines(&b, escaped, "<b>", "</b>")
	if url := d.ManageURL(); url != "" {
		fmt.Fprintf(&b, "\n<a href=\"%s\">View booking</a>", esc(url))
	}
	return strings.TrimRight(b.String(), "\n")
}

// writeLines writes the labelled detail lines, wrapping labels in open/close markup
func writeLines(b *strings.Builder, d model.BookingDetails, open, close string) {
	line := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(b, "%s%s:%s %s\n", open, label, close, value)
	}

	service := orDash(d.ServiceName)
	if d.ServiceDuration > 0 {
		service = fmt.Sprintf("%s (%d min)", service, d.ServiceDuration)
	}
	line("Service", service)
	line("When", FormatWhen(d))
	line("Specialist", d.StaffName)
	line("Price", formatPrice(d))

	salon := d.BusinessName
	if d.BranchName != "" {
		if salon != "" {
			salon += ", "
		}
		salon += d.BranchName
	}
	line("Salon", salon)
	line("Address", d.BranchAddress)

	client := d.ClientName
	if d.ClientPhone != "" {
		if client != "" {
			client += ", "
		}
		client += d.ClientPhone
	}
	line("Client", client)
}

func formatPrice(d model.BookingDetails) string {
	if d.ServicePrice.IsZero() {
		return ""
	}
	return d.ServicePrice.StringFixed(2)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
