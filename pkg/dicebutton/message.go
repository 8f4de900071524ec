package dicebutton

// ButtonStyle selects the visual treatment of a button. Values map onto
// the chat platform's component styles.
type ButtonStyle int

const (
	StylePrimary ButtonStyle = iota
	StyleSecondary
	StyleSuccess
	StyleDanger
)

// Button is a single clickable control. CustomID carries the encoded
// identifier produced by the customid package.
type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
	Disabled bool
}

// Message is a renderable chat message: text plus rows of buttons.
// Controls may be nil for a plain text message. Image is an optional
// attached illustration.
type Message struct {
	Content  string
	Controls [][]Button
	Image    []byte
}

// Row is a convenience constructor for a single button row.
func Row(buttons ...Button) []Button { return buttons }
