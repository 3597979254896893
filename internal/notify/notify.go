package notify

import (
	"fmt"
	"net/url"
	"strings"

	"academy/internal/apperr"
)

// Role picks which contact number receives the message.
type Role string

const (
	Student  Role = "Student"
	Guardian Role = "Guardian"
)

// ParseRole accepts "Student", "Guardian" and the form's "Parents".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student":
		return Student, nil
	case "guardian", "parent", "parents":
		return Guardian, nil
	}
	return "", apperr.Invalid("compose", "role", "oneof", fmt.Sprintf("unknown recipient role %q", s))
}

// NamePlaceholder is replaced literally with the student's name in custom
// templates.
const NamePlaceholder = "{name}"

// Recipient is the student a message is about.
type Recipient struct {
	Name          string `json:"name"`
	StudentMobile string `json:"student_mobile"`
	ParentMobile  string `json:"parent_mobile"`
}

// Context is what the fixed templates interpolate.
type Context struct {
	Subject   string
	Topic     string
	Amount    string
	ReceiptNo string
	Status    string
}

// Message is a composed outbound message. Nothing is sent here.
type Message struct {
	Name        string `json:"name"`
	Destination string `json:"destination"`
	Text        string `json:"text"`
}

// URI returns the wa.me handoff link for the message.
func (m Message) URI() string {
	text := strings.ReplaceAll(url.QueryEscape(m.Text), "+", "%20")
	return "https://wa.me/" + digits(m.Destination) + "?text=" + text
}

// Composer fills templates for one academy.
type Composer struct {
	academy string
}

// NewComposer creates a composer signing messages with the academy name.
func NewComposer(academy string) *Composer {
	return &Composer{academy: academy}
}

// Absence composes the absence notice. A non-empty custom template
// replaces the fixed text.
func (c *Composer) Absence(role Role, r Recipient, ctx Context, custom string) (Message, error) {
	var text string
	switch role {
	case Student:
		text = fmt.Sprintf("Hi %s, you were absent in %s class. Topic: %s.", r.Name, ctx.Subject, ctx.Topic)
	case Guardian:
		text = fmt.Sprintf("Namaste, %s is absent today in %s. Topic missed: %s.", r.Name, c.academy, ctx.Topic)
	}
	return c.compose(role, r, text, custom)
}

// FeePaid composes the payment acknowledgement.
func (c *Composer) FeePaid(role Role, r Recipient, ctx Context, custom string) (Message, error) {
	var text string
	switch role {
	case Student:
		text = fmt.Sprintf("Hi %s, we received your fee payment of %s (receipt %s, %s). Thank you, %s.", r.Name, ctx.Amount, ctx.ReceiptNo, ctx.Status, c.academy)
	case Guardian:
		text = fmt.Sprintf("Namaste, fee payment of %s for %s has been received by %s. Receipt %s, status %s.", ctx.Amount, r.Name, c.academy, ctx.ReceiptNo, ctx.Status)
	}
	return c.compose(role, r, text, custom)
}

// Custom composes an operator-written message; the template must contain
// the name placeholder.
func (c *Composer) Custom(role Role, r Recipient, template string) (Message, error) {
	if !strings.Contains(template, NamePlaceholder) {
		return Message{}, apperr.Invalid("compose", "template", "placeholder", "template must contain "+NamePlaceholder)
	}
	return c.compose(role, r, "", template)
}

func (c *Composer) compose(role Role, r Recipient, text, custom string) (Message, error) {
	var dest string
	switch role {
	case Student:
		dest = r.StudentMobile
	case Guardian:
		dest = r.ParentMobile
	default:
		return Message{}, apperr.Invalid("compose", "role", "oneof", fmt.Sprintf("unknown recipient role %q", role))
	}
	dest = strings.TrimSpace(dest)
	if digits(dest) == "" {
		return Message{}, apperr.Invalid("compose", "destination", "required", fmt.Sprintf("%s has no %s contact number", r.Name, strings.ToLower(string(role))))
	}
	if strings.TrimSpace(custom) != "" {
		text = strings.ReplaceAll(custom, NamePlaceholder, r.Name)
	}
	return Message{Name: r.Name, Destination: dest, Text: text}, nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
