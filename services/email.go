package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"os"
	"strings"

	appContext "github.com/alphabatem/common/context"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/lac-hong-legacy/tutor_api/dto"
	"github.com/lac-hong-legacy/tutor_api/model"
	"github.com/lac-hong-legacy/tutor_api/services/repositories"
	"github.com/lac-hong-legacy/tutor_api/shared"
	log "github.com/sirupsen/logrus"
)

var (
	ErrEmailDisabled   = errors.New("email delivery is not configured")
	ErrHeaderInjection = errors.New("email header contains a line break")
)

type OutgoingEmail struct {
	UserID   string
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// MailTransport delivers one message. Implementations do no bookkeeping.
type MailTransport interface {
	Name() string
	Deliver(ctx context.Context, email OutgoingEmail) error
}

type EmailService struct {
	appContext.DefaultService

	repo      *repositories.EmailRepository
	transport MailTransport
}

const EMAIL_SVC = "email_svc"

func (svc EmailService) Id() string {
	return EMAIL_SVC
}

func NewEmailService(repo *repositories.EmailRepository, transport MailTransport) *EmailService {
	return &EmailService{repo: repo, transport: transport}
}

func (svc *EmailService) Configure(ctx *appContext.Context) error {
	fromName := getEnv("SES_FROM_NAME", shared.AppName)

	switch {
	case os.Getenv("SES_FROM_EMAIL") != "":
		transport, err := newSESTransport(getEnv("AWS_REGION", "us-east-1"), os.Getenv("SES_FROM_EMAIL"), fromName)
		if err != nil {
			return err
		}
		svc.transport = transport
	case os.Getenv("SMTP_HOST") != "":
		svc.transport = &smtpTransport{
			host:     os.Getenv("SMTP_HOST"),
			port:     getEnv("SMTP_PORT", "587"),
			username: os.Getenv("SMTP_USERNAME"),
			password: os.Getenv("SMTP_PASSWORD"),
			from:     os.Getenv("SMTP_FROM_EMAIL"),
			fromName: getEnv("SMTP_FROM_NAME", fromName),
		}
	default:
		svc.transport = disabledTransport{}
	}

	log.WithField("transport", svc.transport.Name()).Info("Email transport selected")
	return svc.DefaultService.Configure(ctx)
}

func (svc *EmailService) Start() error {
	dbSvc := svc.Service(DATABASE_SVC).(*DatabaseService)
	svc.repo = repositories.NewEmailRepository(dbSvc.Db())
	return nil
}

// Send records the message as pending, attempts delivery and stores the
// outcome. The record is returned even when delivery fails.
func (svc *EmailService) Send(ctx context.Context, email OutgoingEmail) (*model.EmailRecord, error) {
	record := &model.EmailRecord{
		UserID:    email.UserID,
		Recipient: email.To,
		Subject:   email.Subject,
		Body:      email.HTMLBody,
		Status:    model.EmailStatusPending,
	}
	if record.Body == "" {
		record.Body = email.TextBody
	}

	if err := svc.repo.CreateRecord(record); err != nil {
		return nil, HandleDBError(err)
	}

	deliveryErr := svc.transport.Deliver(ctx, email)

	record.Status = model.EmailStatusSent
	record.Error = ""
	if deliveryErr != nil {
		record.Status = model.EmailStatusFailed
		record.Error = deliveryErr.Error()
	}

	if err := svc.repo.UpdateStatus(record.ID, record.Status, record.Error); err != nil {
		log.WithError(err).WithField("record_id", record.ID).Error("Failed to update email record status")
	}
	RecordEmail(string(record.Status))

	logEntry := log.WithFields(log.Fields{
		"record_id": record.ID,
		"to":        email.To,
		"subject":   email.Subject,
		"transport": svc.transport.Name(),
	})
	if deliveryErr != nil {
		logEntry.WithError(deliveryErr).Error("Failed to send email")
		if errors.Is(deliveryErr, ErrHeaderInjection) {
			return record, shared.NewBadRequestError(deliveryErr, "Email headers must not contain line breaks")
		}
		return record, shared.NewUpstreamError(deliveryErr, "Failed to send email")
	}

	logEntry.Info("Email sent successfully")
	return record, nil
}

// SendUserMail backs the direct send endpoint.
func (svc *EmailService) SendUserMail(ctx context.Context, userID string, req dto.SendMailRequest) (*model.EmailRecord, error) {
	return svc.Send(ctx, OutgoingEmail{
		UserID:   userID,
		To:       req.To,
		Subject:  req.Subject,
		HTMLBody: req.Body,
		TextBody: req.Body,
	})
}

func (svc *EmailService) ListUserMail(userID string) ([]model.EmailRecord, error) {
	records, err := svc.repo.ListByUser(userID)
	if err != nil {
		return nil, HandleDBError(err)
	}
	return records, nil
}

// ==================== TRANSPORTS ====================

type disabledTransport struct{}

func (disabledTransport) Name() string { return "disabled" }

func (disabledTransport) Deliver(ctx context.Context, email OutgoingEmail) error {
	return ErrEmailDisabled
}

type sesTransport struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
}

func newSESTransport(region, fromEmail, fromName string) (*sesTransport, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &sesTransport{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

func (t *sesTransport) Name() string { return "ses" }

func (t *sesTransport) Deliver(ctx context.Context, email OutgoingEmail) error {
	if err := checkHeaders(email.To, email.Subject); err != nil {
		return err
	}

	fromAddress := t.fromEmail
	if t.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", t.fromName, t.fromEmail)
	}

	body := &types.Body{}
	if email.HTMLBody != "" {
		body.Html = &types.Content{Data: aws.String(email.HTMLBody), Charset: aws.String("UTF-8")}
	}
	if email.TextBody != "" {
		body.Text = &types.Content{Data: aws.String(email.TextBody), Charset: aws.String("UTF-8")}
	}

	_, err := t.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(email.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", email.To, err)
	}
	return nil
}

type smtpTransport struct {
	host     string
	port     string
	username string
	password string
	from     string
	fromName string
}

func (t *smtpTransport) Name() string { return "smtp" }

func (t *smtpTransport) Deliver(ctx context.Context, email OutgoingEmail) error {
	if err := checkHeaders(t.fromName, email.To, email.Subject); err != nil {
		return err
	}

	contentType := "text/html"
	body := email.HTMLBody
	if body == "" {
		contentType = "text/plain"
		body = email.TextBody
	}

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: %s; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		mime.QEncoding.Encode("UTF-8", t.fromName), t.from, email.To,
		mime.QEncoding.Encode("UTF-8", email.Subject), contentType, body))

	var auth smtp.Auth
	if t.username != "" {
		auth = smtp.PlainAuth("", t.username, t.password, t.host)
	}

	if err := smtp.SendMail(t.host+":"+t.port, auth, t.from, []string{email.To}, msg); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}

func checkHeaders(values ...string) error {
	for _, v := range values {
		if strings.ContainsAny(v, "\r\n") {
			return ErrHeaderInjection
		}
	}
	return nil
}
