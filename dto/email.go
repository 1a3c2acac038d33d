package dto

type SendMailRequest struct {
	To      string `json:"to" validate:"required,email" example:"parent@example.com"`
	Subject string `json:"subject" validate:"required,max=200,single_line"`
	Body    string `json:"body" validate:"required"`
}

func (s *SendMailRequest) Validate() error {
	return GetValidator().Struct(s)
}
