package api

import "time"

const (
	maxBodyBytes       = 1 << 20
	defaultTaskTimeout = 30 * time.Second
	unknownActionText  = "Sorry <@%s>, I couldn't process that action. Please try again."
	notOwnerText       = "<@%s>, only <@%s> can answer this follow-up."
	unknownCommandText = "Sorry, I don't know `%s`. Try `/help` for the list of commands."
)
