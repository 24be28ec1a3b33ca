package model

import "time"

type ContactMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// MessageCounts summarizes the inbox for the admin dashboard.
type MessageCounts struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
}
