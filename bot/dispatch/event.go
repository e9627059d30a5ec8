package dispatch

// EventKind tells which transport signal produced an Event.
type EventKind int

const (
	// KindCommand is a slash command such as /start.
	KindCommand EventKind = iota
	// KindButton is an inline button press.
	KindButton
	// KindText is a plain text message.
	KindText
)

func (k EventKind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindButton:
		return "button"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Event is one inbound interaction from a user.
type Event struct {
	Kind   EventKind
	UserID int64
	// Name is the command name without the slash, for KindCommand.
	Name string
	// Data is the button payload, for KindButton.
	Data string
	// Text is the message body, for KindText.
	Text string
}

// Button is an inline keyboard button. Exactly one of Data and URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Reply is an outbound instruction for the transport.
type Reply struct {
	Text     string
	Markdown bool
	// Edit asks the transport to replace the message carrying the pressed button.
	Edit    bool
	Buttons [][]Button
}

// Button payloads understood by the dispatcher. Action buttons carry ActionKey,
// a "|" separator, then the action name.
const (
	DataMenu     = "menu"
	DataRecheck  = "recheck"
	DataDownload = "download"
	ActionKey    = "act"
	actionPrefix = ActionKey + "|"
)

// ButtonKeys lists the leading keys of every payload the dispatcher emits.
var ButtonKeys = []string{ActionKey, DataMenu, DataRecheck, DataDownload}

// ActionData returns the payload of the button selecting action.
func ActionData(action string) string {
	return actionPrefix + action
}

// CommandStart is the command that opens the menu.
const CommandStart = "start"
