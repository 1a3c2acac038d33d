package shared

const (
	UserID = "user_id"

	AppName = "Tutor"
)
