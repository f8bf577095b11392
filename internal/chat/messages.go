package chat

const (
	msgWelcome           = "Welcome to the karaoke bot! 🎤\nPlease tell us your name:"
	msgAskTable          = "Thanks, %s! Now send your table number:"
	msgBadName           = "Please send your name as plain text:"
	msgWelcomeBack       = "Welcome back! Your table: %d\nSend a song title or an artist to search."
	msgRegistered        = "Great! Your table: %d\nNow send a song title or an artist to search."
	msgBadTable          = "The table number must be a positive whole number. Please try again:"
	msgEmptyQuery        = "Please type a song title or an artist to search for."
	msgNothingFound      = "Sorry, nothing found. Try another query."
	msgChooseSong        = "Choose a song:"
	msgConfirmSong       = "%s\nRequest this song?"
	msgOrderPlaced       = "Your request #%d \"%s\" is in the queue (table %d). 🎶"
	msgNotRegistered     = "You are not registered at a table yet. Send /start to register."
	msgInvalidTransition = "That request is already finished."
	msgWrongSecret       = "Wrong admin password."
	msgForbidden         = "You can only change your own requests."
	msgTooManyOrders     = "You already have the maximum number of songs in the queue. Wait for one to finish."
	msgSongNotFound      = "That song is no longer in the catalog."
	msgOrderNotFound     = "That request does not exist."
	msgInternal          = "Something went wrong, please try again in a moment."
	msgNoHistory         = "You have not requested any songs yet."
	msgHistory           = "Your requests:\n%s"
	msgNothingToCancel   = "You have no active requests."
	msgPickCancel        = "Which request do you want to cancel?"
	msgCancelled         = "Request #%d cancelled."
	msgAdvanced          = "Request #%d is now %s."
	msgReset             = "Your registration was reset. Send /start to register again."
	msgAdminUsage        = "Usage: /admin <password>"
	msgPromoted          = "You are now an admin. Use /orders to see the queue."
	msgStaffOnly         = "This command is for staff only."
	msgQueueEmpty        = "The queue is empty."
	msgQueue             = "Queue:\n%s"
	msgNewOrder          = "🎤 New request #%d: %s (table %d)"
	msgUnknownCommand    = "Unknown command. Try /start, /search, /history, /cancel or /reset."
)
