package session

// User is the account profile cached alongside the tokens. The server is the
// source of truth; this copy may be stale until the next fetch or update.
// Field names follow the accounts API serializer.
type User struct {
	ID                 int64  `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	BusinessName       string `json:"business_name"`
	PhoneNumber        string `json:"phone_number"`
	BusinessType       string `json:"business_type"`
	ServiceHours       string `json:"service_hours"`
	CustomServiceHours string `json:"custom_service_hours,omitempty"`
	Currency           string `json:"currency"`
	EmailNotifications bool   `json:"email_notifications"`
	SMSNotifications   bool   `json:"sms_notifications"`
}
