package dto

import "testing"

func TestRegisterRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"valid", RegisterRequest{Email: "a@example.com", Username: "noa", Password: "Secret123"}, false},
		{"no digits", RegisterRequest{Email: "a@example.com", Username: "noa", Password: "SecretSecret"}, true},
		{"no letters", RegisterRequest{Email: "a@example.com", Username: "noa", Password: "12345678"}, true},
		{"too short", RegisterRequest{Email: "a@example.com", Username: "noa", Password: "ab12"}, true},
		{"bad email", RegisterRequest{Email: "not-an-email", Username: "noa", Password: "Secret123"}, true},
		{"short username", RegisterRequest{Email: "a@example.com", Username: "n", Password: "Secret123"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubjectValidation(t *testing.T) {
	if err := (&StartLessonRequest{Subject: "Grade5_Fractions"}).Validate(); err != nil {
		t.Errorf("known subject rejected: %v", err)
	}
	if err := (&StartLessonRequest{Subject: "Grade9_Calculus"}).Validate(); err == nil {
		t.Error("unknown subject accepted")
	}
	if err := (&UpdateSubjectsRequest{Subjects: []string{"Grade6_Decimals", "nope"}}).Validate(); err == nil {
		t.Error("unknown subject in list accepted")
	}
	if err := (&UpdateSubjectsRequest{}).Validate(); err != nil {
		t.Errorf("empty list rejected: %v", err)
	}
}

func TestFormatValidationErrors(t *testing.T) {
	err := (&RegisterRequest{Email: "bad", Username: "noa", Password: "short"}).Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}

	got := map[string]string{}
	for _, e := range FormatValidationErrors(err) {
		got[e.Field] = e.Message
	}
	if got["Email"] != "Invalid email format" {
		t.Errorf("Email message = %q", got["Email"])
	}
	if got["Password"] != "Password must contain at least 8 characters with letters and numbers" {
		t.Errorf("Password message = %q", got["Password"])
	}
	if _, ok := got["Username"]; ok {
		t.Error("valid Username reported")
	}
}

func TestSendMailRequestRejectsLineBreaks(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		wantErr bool
	}{
		{"plain", "Weekly report", false},
		{"hebrew", "דוח שבועי", false},
		{"crlf bcc", "Hi\r\nBcc: victim@example.net", true},
		{"bare lf", "Hi\nX-Extra: 1", true},
		{"bare cr", "Hi\rthere", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&SendMailRequest{To: "parent@example.com", Subject: tt.subject, Body: "b"}).Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errs := FormatValidationErrors(err)
				if len(errs) != 1 || errs[0].Message != "Subject must not contain line breaks" {
					t.Errorf("errors = %+v", errs)
				}
			}
		})
	}
}
