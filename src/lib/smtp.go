package lib

import (
	"log"
	"os"
	"strconv"

	"github.com/wneessen/go-mail"
)

type SendMailInput struct {
	From     string
	FromName string
	To       []string
	Subject  string
	Body     string
	Html     bool
}

// Mailer sends transactional mail. Delivery is best-effort everywhere in this
// codebase: callers log failures and move on.
type Mailer interface {
	Send(input *SendMailInput) error
}

var mailer Mailer

func GetMailer() Mailer {
	if mailer != nil {
		return mailer
	}
	mailer = &smtpMailer{}
	return mailer
}

// NewMailer replaces the mailer instance, used by tests
func NewMailer(m Mailer) Mailer {
	mailer = m
	return mailer
}

type smtpMailer struct{}

func GetSMTPClient() (*mail.Client, error) {
	host := os.Getenv("SMTP_HOST")
	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		port = 587
	}
	user := os.Getenv("SMTP_USERNAME")
	pass := os.Getenv("SMTP_PASSWORD")
	c, err := mail.NewClient(host, mail.WithPort(port), mail.WithSMTPAuth(mail.SMTPAuthPlain), mail.WithUsername(user), mail.WithPassword(pass))
	if err != nil {
		log.Printf("Could not initialize smtp client: %s\n", err.Error())
		return nil, err
	}
	return c, nil
}

func (m *smtpMailer) Send(input *SendMailInput) error {
	c, err := GetSMTPClient()
	if err != nil {
		return err
	}
	msg := mail.NewMsg()
	if err := msg.FromFormat(input.FromName, input.From); err != nil {
		log.Printf("Failed to set From address: %s\n", err.Error())
	}
	if err := msg.To(input.To...); err != nil {
		log.Printf("Failed to set To address: %s\n", err.Error())
	}
	msg.Subject(input.Subject)
	if input.Html {
		msg.SetBodyString(mail.TypeTextHTML, input.Body)
	} else {
		msg.SetBodyString(mail.TypeTextPlain, input.Body)
	}
	if err := c.DialAndSend(msg); err != nil {
		return err
	}
	return nil
}

// SendMail dispatches through the configured mailer.
func SendMail(input *SendMailInput) error {
	return GetMailer().Send(input)
}
