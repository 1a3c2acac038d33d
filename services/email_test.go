package services

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/lac-hong-legacy/tutor_api/dto"
	"github.com/lac-hong-legacy/tutor_api/model"
	"github.com/lac-hong-legacy/tutor_api/services/repositories"
)

type recordingTransport struct {
	delivered []OutgoingEmail
	err       error
}

func (t *recordingTransport) Name() string { return "recording" }

func (t *recordingTransport) Deliver(ctx context.Context, email OutgoingEmail) error {
	t.delivered = append(t.delivered, email)
	return t.err
}

func TestEmailSendRecordsOutcome(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewEmailRepository(db)
	transport := &recordingTransport{}
	svc := NewEmailService(repo, transport)

	record, err := svc.SendUserMail(context.Background(), "user-1", dto.SendMailRequest{
		To:      "parent@example.com",
		Subject: "Hello",
		Body:    "<p>Hi</p>",
	})
	if err != nil {
		t.Fatalf("SendUserMail: %v", err)
	}
	if len(transport.delivered) != 1 {
		t.Fatalf("delivered = %d, want 1", len(transport.delivered))
	}

	stored, err := repo.GetRecord(record.ID)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if stored.Status != model.EmailStatusSent || stored.Error != "" {
		t.Errorf("record = %s %q, want sent", stored.Status, stored.Error)
	}
	if stored.Recipient != "parent@example.com" || stored.UserID != "user-1" {
		t.Errorf("record = %+v", stored)
	}
}

func TestEmailSendFailureKeepsRecord(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewEmailRepository(db)

	for name, transport := range map[string]MailTransport{
		"disabled": disabledTransport{},
		"failing":  &recordingTransport{err: errors.New("connection refused")},
	} {
		t.Run(name, func(t *testing.T) {
			svc := NewEmailService(repo, transport)

			record, err := svc.Send(context.Background(), OutgoingEmail{
				UserID:   "user-" + name,
				To:       "parent@example.com",
				Subject:  "Report",
				TextBody: "plain body",
			})
			assertStatus(t, err, http.StatusInternalServerError)
			if record == nil || record.ID == "" {
				t.Fatalf("record = %+v, want a stored record", record)
			}

			stored, err := repo.GetRecord(record.ID)
			if err != nil {
				t.Fatalf("GetRecord: %v", err)
			}
			if stored.Status != model.EmailStatusFailed || stored.Error == "" {
				t.Errorf("record = %s %q, want failed with error", stored.Status, stored.Error)
			}
			if stored.Body != "plain body" {
				t.Errorf("body = %q, want text body fallback", stored.Body)
			}
		})
	}
}

func TestListUserMail(t *testing.T) {
	db := newTestDB(t)
	svc := NewEmailService(repositories.NewEmailRepository(db), &recordingTransport{})
	ctx := context.Background()

	for _, user := range []string{"a", "a", "b"} {
		if _, err := svc.Send(ctx, OutgoingEmail{UserID: user, To: "x@example.com", Subject: "s", TextBody: "b"}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	records, err := svc.ListUserMail("a")
	if err != nil {
		t.Fatalf("ListUserMail: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("records = %d, want 2", len(records))
	}
	for _, r := range records {
		if r.UserID != "a" {
			t.Errorf("record for %q leaked into user a", r.UserID)
		}
	}
}

// fakeSMTP accepts one session per connection and keeps each DATA payload.
type fakeSMTP struct {
	ln   net.Listener
	data chan string
}

func newFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeSMTP{ln: ln, data: make(chan string, 4)}
	t.Cleanup(func() { ln.Close() })
	go s.serve()
	return s
}

func (s *fakeSMTP) port() string {
	return strings.TrimPrefix(s.ln.Addr().String(), "127.0.0.1:")
}

func (s *fakeSMTP) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.session(conn)
	}
}

func (s *fakeSMTP) session(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	reply := func(line string) { conn.Write([]byte(line + "\r\n")) }

	reply("220 localhost ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			reply("250 localhost")
		case strings.HasPrefix(cmd, "DATA"):
			reply("354 end with <CRLF>.<CRLF>")
			var data strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				data.WriteString(l)
			}
			s.data <- data.String()
			reply("250 queued")
		case strings.HasPrefix(cmd, "QUIT"):
			reply("221 bye")
			return
		default:
			reply("250 ok")
		}
	}
}

func TestSMTPTransportHeaders(t *testing.T) {
	server := newFakeSMTP(t)
	transport := &smtpTransport{host: "127.0.0.1", port: server.port(), from: "tutor@example.com", fromName: "Tutor"}

	tests := []struct {
		name        string
		subject     string
		wantErr     error
		wantSubject string
	}{
		{"plain", "Weekly report", nil, "Subject: Weekly report\r\n"},
		{"hebrew", "שלום", nil, "Subject: =?UTF-8?q?"},
		{"crlf bcc", "Hi\r\nBcc: victim@example.net", ErrHeaderInjection, ""},
		{"bare lf", "Hi\nBcc: victim@example.net", ErrHeaderInjection, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := transport.Deliver(context.Background(), OutgoingEmail{
				To:       "parent@example.com",
				Subject:  tt.subject,
				TextBody: "body",
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Deliver() = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				select {
				case data := <-server.data:
					t.Fatalf("message reached the server: %q", data)
				default:
				}
				return
			}

			data := <-server.data
			if !strings.Contains(data, tt.wantSubject) {
				t.Errorf("data = %q, want subject %q", data, tt.wantSubject)
			}
			if strings.Contains(strings.ToLower(data), "\nbcc:") {
				t.Errorf("data carries a Bcc header: %q", data)
			}
		})
	}
}

func TestEmailSendRejectsHeaderInjection(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewEmailRepository(db)
	transport := &smtpTransport{host: "127.0.0.1", port: "1", from: "tutor@example.com"}
	svc := NewEmailService(repo, transport)

	record, err := svc.Send(context.Background(), OutgoingEmail{
		UserID:   "user-1",
		To:       "parent@example.com",
		Subject:  "Hi\r\nBcc: victim@example.net",
		TextBody: "body",
	})
	assertStatus(t, err, http.StatusBadRequest)

	stored, err := repo.GetRecord(record.ID)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if stored.Status != model.EmailStatusFailed {
		t.Errorf("status = %s, want failed", stored.Status)
	}
}
