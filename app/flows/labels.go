package flows

// Reply keyboard labels. Incoming text is compared against these verbatim.
const (
	LabelAddVideo      = "Add Video"
	LabelViewUsers     = "View Users"
	LabelManageVideos  = "Manage Videos"
	LabelRefreshVideos = "🔄 Refresh videos"
	LabelSharePhone    = "Share phone number"
	LabelDeleteUser    = "❌ Delete"
	LabelDeleteVideo   = "❌ Delete Video"
)

// Callback keys for inline delete buttons.
const (
	CallbackDeleteUser  = "delete_user"
	CallbackDeleteVideo = "delete_video"
)

const (
	msgAskName        = "Please enter your full name:"
	msgAskPhone       = "Please share your phone number (press the button):"
	msgBadPhone       = "Please share a valid phone number using the button."
	msgWelcomeBack    = "Welcome back! Choose a video below."
	msgRegistered     = "Registration successful! Choose a video below."
	msgRefreshed      = "Updated list. Choose a video:"
	msgNoVideosYet    = "No videos available yet."
	msgHereIsVideo    = "Here is your video:\n%s"
	msgCancelled      = "Cancelled."
	msgAccessDenied   = "Access denied."
	msgAdminPanel     = "Admin panel:"
	msgAdminClosed    = "Closed admin panel."
	msgAskTitle       = "Enter video title:"
	msgAskLink        = "Enter YouTube link:"
	msgVideoAdded     = "Video added successfully."
	msgNewRelease     = "New video just released!\n%s"
	msgNoUsers        = "No registered users."
	msgNoVideos       = "No videos available."
	msgUserCard       = "Name: %s\nPhone: %s\nTelegram ID: %d"
	msgVideoCard      = "Title: %s\nLink: %s"
	msgUserDeleted    = "User deleted successfully."
	msgVideoDeleted   = "Video deleted successfully."
	msgAddAdminUsage  = "Usage: /addadmin <telegram_id>"
	msgAdminAdded     = "Added admin: %d"
	msgSomethingWrong = "Something went wrong, please try again."
)

var adminLabels = map[string]struct{}{
	LabelAddVideo:     {},
	LabelViewUsers:    {},
	LabelManageVideos: {},
}

// IsAdminLabel reports whether text is one of the admin panel buttons.
func IsAdminLabel(text string) bool {
	_, ok := adminLabels[text]
	return ok
}
