package domain

import "time"

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UserID    string
}

type Message struct {
	ID        string
	Content   string
	Sender    Sender
	CreatedAt time.Time

	// Pending marks a message whose id was generated locally and never
	// confirmed by the data service.
	Pending bool
}
