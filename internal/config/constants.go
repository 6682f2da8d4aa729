package config

import "time"

const (
	// Title given to conversations created by the client
	DefaultConversationTitle = "New Conversation"

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// Refresh the access token this long before it expires
	TokenRefreshMargin = 60 * time.Second

	// Shortest delay between two scheduled token refreshes
	MinTokenRefreshDelay = 5 * time.Second

	// Retry delay after a refresh that failed in transport
	TokenRefreshRetry = 30 * time.Second

	// Timeout for background token refreshes
	TokenRefreshTimeout = 30 * time.Second

	// How often idle clients are swept
	ClientSweepInterval = 10 * time.Minute

	// Conversations shown in the picker
	ConversationsPerPicker = 10

	// Picker button title length
	MaxTitleLen = 40

	// History messages sent to OpenRouter by the postgres backend
	ReplyContextMessages = 30

	// Startup connection check against the database
	DatabaseConnectTimeout = 10 * time.Second

	// Idle pooled connections are closed after this long
	DatabaseMaxConnIdle = 5 * time.Minute

	// Version table kept apart from anything Hasura manages
	MigrationsTable = "mindchat_schema_migrations"

	// Timeout for messages sent to the log chat
	LogSendTimeout = 10 * time.Second
)
