package skill

// Phrases spoken by the dispatcher.
const (
	PhraseWelcome          = `Welcome to Audiobookshelf, you can say "play audiobook" to start listening.`
	PhraseHelp             = `Tell me to play a specific audiobook, or you can say "play audio" to start playing your last book! How can I help?`
	PhraseFallback         = "Sorry, I don't know about that. Try telling me to play a certain book."
	PhraseFallbackReprompt = "What would you like to do? You can try telling me to play a certain book."
	PhraseUnsupported      = "Sorry, I can't support that yet."
	PhraseBookNotHeard     = `I did not understand the request. For example, try saying "Play audiobook title" or "Play audiobook title by author".`
	PhraseSeekNotHeard     = "Sorry, I didn't catch how far to skip."
	PhraseTrouble          = "Sorry, I had trouble doing what you asked. Please try again."
)

// bookNotFound is spoken when no audiobook matches a title.
func bookNotFound(title string) string {
	return "No book of title '" + title + "' found. Please try again."
}
