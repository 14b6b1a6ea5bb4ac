package tui

import (
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// tickMsg is fired every second to update the countdown timer.
type tickMsg time.Time

// state represents the current phase of token acquisition.
type state int

const (
	stateInit        state = iota
	stateSilent            // trying the cached account
	stateBrowser           // waiting for the browser login
	stateDeviceFlow        // device code received, showing to user
	stateInteractive       // interactive login starting
	stateSuccess           // all done
	stateError             // fatal error
)

// statusKind distinguishes line types in the status log.
type statusKind int

const (
	statusOK   statusKind = iota
	statusWarn            // warning / non-fatal
	statusInfo            // neutral info
)

// statusLine is one row in the scrolling status log.
type statusLine struct {
	kind statusKind
	text string
}

// Model is the BubbleTea model for the token acquisition TUI.
type Model struct {
	state   state
	spinner spinner.Model
	width   int
	height  int

	// Browser login
	loginURL string

	// Device code info
	userCode   string
	verifyURL  string
	codeMsg    string
	codeExpiry time.Time
	remaining  time.Duration

	// Success / error display
	username     string
	tokenPreview string
	expiresIn    time.Duration
	errMsg       string

	// Scrolling status log shown below the main panel
	statusLines []statusLine
}

// Lipgloss styles, defined once at package level.
var (
	styleTitleBox = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 2)

	styleCodeBox = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("228")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("228")).
			Padding(0, 2)

	styleOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleDim  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	styleBold = lipgloss.NewStyle().Bold(true)
)

// NewModel creates the initial TUI model.
func NewModel() Model {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))),
	)
	return Model{
		state:   stateInit,
		spinner: s,
	}
}

// Init starts the spinner animation.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		m.remaining = max(time.Until(m.codeExpiry), 0)
		if m.remaining > 0 {
			return m, tickAfterSecond()
		}
		return m, nil

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	// ── Token acquisition messages ───────────────────────────────────────────

	case MsgBanner:
		return m, nil

	case MsgCacheLoaded:
		m.addStatus(statusOK, "Loaded token cache from "+msg.Location)
		return m, nil

	case MsgCacheNotFound:
		m.addStatus(statusInfo, "No token cache at "+msg.Location)
		return m, nil

	case MsgCacheLoadFailed:
		m.addStatus(statusWarn, fmt.Sprintf("Ignoring unreadable token cache: %v", msg.Err))
		return m, nil

	case MsgAccountFound:
		m.state = stateSilent
		m.addStatus(statusOK, "Found cached account "+msg.Username)
		return m, nil

	case MsgNoAccount:
		m.addStatus(statusInfo, "No cached account")
		return m, nil

	case MsgSilentOK:
		m.addStatus(statusOK, "Using cached token")
		return m, nil

	case MsgSilentFailed:
		m.addStatus(statusWarn, fmt.Sprintf("Silent acquisition failed: %v", msg.Err))
		return m, nil

	case MsgInteractiveRequired:
		m.state = stateInteractive
		m.addStatus(statusInfo, "Interactive login required ("+msg.Mode+")")
		return m, nil

	case MsgBrowserOpened:
		m.loginURL = msg.URL
		m.state = stateBrowser
		return m, nil

	case MsgDeviceCodeReady:
		m.userCode = msg.UserCode
		m.verifyURL = msg.VerifyURL
		m.codeMsg = msg.Message
		m.codeExpiry = msg.Expiry
		m.remaining = time.Until(msg.Expiry)
		m.state = stateDeviceFlow
		m.addStatus(statusInfo, "Device code ready")
		return m, tickAfterSecond()

	case MsgInteractiveOK:
		if msg.Username != "" {
			m.addStatus(statusOK, "Signed in as "+msg.Username)
		} else {
			m.addStatus(statusOK, "Login successful!")
		}
		return m, nil

	case MsgTokenSaved:
		m.addStatus(statusOK, "Token cache saved to "+msg.Path)
		return m, nil

	case MsgTokenSaveFailed:
		m.addStatus(statusWarn, fmt.Sprintf("Warning: failed to save token cache: %v", msg.Err))
		return m, nil

	case MsgCallingAPI:
		m.addStatus(statusInfo, "Calling "+msg.URL)
		return m, nil

	case MsgAPICallOK:
		m.addStatus(statusOK, fmt.Sprintf("API call successful (%d)", msg.Status))
		return m, nil

	case MsgAPICallFailed:
		m.addStatus(statusWarn, fmt.Sprintf("API call failed: %v", msg.Err))
		return m, nil

	case MsgDone:
		m.username = msg.Username
		m.tokenPreview = msg.Preview
		m.expiresIn = msg.ExpiresIn
		m.state = stateSuccess
		return m, nil

	case MsgFatal:
		m.errMsg = msg.Err.Error()
		m.state = stateError
		return m, nil
	}

	return m, nil
}

// View renders the TUI.
func (m Model) View() tea.View {
	switch m.state {
	case stateSuccess:
		return tea.NewView(m.viewSuccess())
	case stateError:
		return tea.NewView(m.viewError())
	default:
		return tea.NewView(m.viewMain())
	}
}

// viewMain is shown while the token is being acquired.
func (m Model) viewMain() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleTitleBox.Render("  MSAL Bearer Token Login  "))
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowser:
		b.WriteString(styleBold.Render("Sign in with your browser."))
		b.WriteString("\n")
		b.WriteString(styleDim.Render("If it does not open, visit:"))
		b.WriteString("\n")
		b.WriteString(m.loginURL)
		b.WriteString("\n\n")
		b.WriteString(m.spinner.View())
		b.WriteString(" Waiting for login...\n")

	case stateDeviceFlow:
		if m.codeMsg != "" {
			b.WriteString(m.codeMsg)
			b.WriteString("\n\n")
		}
		b.WriteString(styleDim.Render("Visit: " + m.verifyURL))
		b.WriteString("\n")
		b.WriteString(styleDim.Render("Enter code:"))
		b.WriteString("\n\n")

		b.WriteString(styleCodeBox.Render("  " + m.userCode + "  "))
		b.WriteString("\n\n")

		b.WriteString(m.spinner.View())
		b.WriteString(" Waiting for authorization...")
		if m.remaining > 0 {
			b.WriteString("  ")
			b.WriteString(styleDim.Render(formatDuration(m.remaining) + " remaining"))
		}
		b.WriteString("\n")

	case stateSilent:
		b.WriteString(m.spinner.View())
		b.WriteString(" Acquiring token silently...\n")

	case stateInteractive:
		b.WriteString(m.spinner.View())
		b.WriteString(" Starting login...\n")

	default:
		b.WriteString(m.spinner.View())
		b.WriteString(" Loading token cache...\n")
	}

	b.WriteString(m.viewStatusLog())
	return b.String()
}

// viewSuccess is shown once a token was acquired.
func (m Model) viewSuccess() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleOK.Render("  ✓ Token acquired"))
	b.WriteString("\n\n")

	if m.username != "" {
		b.WriteString(styleBold.Render("User:         "))
		b.WriteString(m.username + "\n")
	}

	b.WriteString(styleBold.Render("Access Token: "))
	b.WriteString(m.tokenPreview + "...\n")

	if m.expiresIn > 0 {
		b.WriteString(styleBold.Render("Expires In:   "))
		b.WriteString(formatDuration(m.expiresIn) + "\n")
	}

	b.WriteString(m.viewStatusLog())
	return b.String()
}

// viewError is shown when a fatal error occurs.
func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleErr.Render("  ✗ Token acquisition failed"))
	b.WriteString("\n\n")
	b.WriteString(styleDim.Render("  " + m.errMsg))
	b.WriteString("\n")

	b.WriteString(m.viewStatusLog())
	return b.String()
}

// viewStatusLog renders the scrolling status log.
func (m Model) viewStatusLog() string {
	if len(m.statusLines) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")

	for _, line := range m.statusLines {
		switch line.kind {
		case statusOK:
			b.WriteString(styleOK.Render("  ✓ " + line.text))
		case statusWarn:
			b.WriteString(styleWarn.Render("  ⚠ " + line.text))
		default:
			b.WriteString(styleDim.Render("  · " + line.text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// addStatus appends a line to the status log.
func (m *Model) addStatus(kind statusKind, text string) {
	m.statusLines = append(m.statusLines, statusLine{kind: kind, text: text})
}

// tickAfterSecond returns a command that fires tickMsg after one second.
func tickAfterSecond() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// formatDuration formats a duration as "Xm Ys" or "Xs".
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
