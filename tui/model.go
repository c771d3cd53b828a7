package tui

import (
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// tickMsg is fired every second to update the wait timer.
type tickMsg time.Time

// state represents the current phase of session resolution.
type state int

const (
	stateInit       state = iota
	stateRefreshing       // refreshing the stored access token
	stateAwaiting         // authorization URL shown, waiting for the browser
	stateExchanging       // trading the code for tokens and loading the profile
	stateSuccess          // session ready
	stateError            // fatal error
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

// Model is the BubbleTea model for the login TUI.
type Model struct {
	state   state
	spinner spinner.Model
	width   int
	height  int

	// Authorization info
	authURL      string
	port         int
	waitStarted  time.Time
	waitDeadline time.Time
	elapsed      time.Duration

	// Success / error display
	name       string
	email      string
	employeeID int
	expiresIn  time.Duration
	errMsg     string

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

	styleURLBox = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("228")).
			Padding(0, 1)

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
		if m.state != stateAwaiting {
			return m, nil
		}
		m.elapsed = time.Since(m.waitStarted)
		return m, tickAfterSecond()

	case tea.KeyPressMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	// ── Session messages ─────────────────────────────────────────────────────

	case MsgBanner:
		return m, nil

	case MsgCredentialsFound:
		m.addStatus(statusOK, "Found saved login")
		return m, nil

	case MsgTokenValid:
		m.addStatus(statusOK, "Access token is still valid")
		return m, nil

	case MsgTokenExpired:
		m.addStatus(statusWarn, "Access token expired")
		m.state = stateRefreshing
		return m, nil

	case MsgCredentialsNotFound:
		m.addStatus(statusInfo, "Not logged in, starting browser login")
		return m, nil

	case MsgRefreshing:
		m.state = stateRefreshing
		m.addStatus(statusInfo, "Refreshing access token...")
		return m, nil

	case MsgRefreshOK:
		m.addStatus(statusOK, "Token refreshed successfully")
		return m, nil

	case MsgRefreshFailed:
		m.addStatus(statusWarn, fmt.Sprintf("Refresh failed: %v", msg.Err))
		return m, nil

	case MsgAuthorizationURLReady:
		m.authURL = msg.URL
		m.port = msg.Port
		m.waitStarted = time.Now()
		if msg.Timeout > 0 {
			m.waitDeadline = m.waitStarted.Add(msg.Timeout)
		}
		m.state = stateAwaiting
		m.addStatus(statusInfo, fmt.Sprintf("Listening for the login redirect on port %d", msg.Port))
		return m, tickAfterSecond()

	case MsgWaitingForCallback:
		m.state = stateAwaiting
		return m, nil

	case MsgCallbackReceived:
		m.addStatus(statusOK, "Browser login received")
		return m, nil

	case MsgExchangingCode:
		m.state = stateExchanging
		m.addStatus(statusInfo, "Exchanging authorization code...")
		return m, nil

	case MsgFetchingProfile:
		m.addStatus(statusInfo, "Loading employee profile...")
		return m, nil

	case MsgAuthSuccess:
		m.addStatus(statusOK, "Logged in as "+msg.Name)
		return m, nil

	case MsgCredentialsSaved:
		m.addStatus(statusOK, "Credentials saved to "+msg.Path)
		return m, nil

	case MsgLoggedOut:
		m.addStatus(statusOK, "Removed "+msg.Path)
		return m, nil

	case MsgDone:
		m.name = msg.Name
		m.email = msg.Email
		m.employeeID = msg.EmployeeID
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

// viewMain is shown while refreshing, waiting for the browser, and exchanging.
func (m Model) viewMain() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleTitleBox.Render("  Floq Login  "))
	b.WriteString("\n\n")

	switch m.state {
	case stateAwaiting:
		b.WriteString(styleBold.Render("Open this link in your browser to log in:"))
		b.WriteString("\n")
		url := m.authURL
		if m.width > 8 {
			url = lipgloss.NewStyle().Width(m.width - 4).Render(url)
		}
		b.WriteString(styleURLBox.Render(url))
		b.WriteString("\n\n")

		b.WriteString(m.spinner.View())
		b.WriteString(" Waiting for the browser login...  ")
		if !m.waitDeadline.IsZero() {
			b.WriteString(styleDim.Render(formatDuration(time.Until(m.waitDeadline)) + " remaining"))
		} else {
			b.WriteString(styleDim.Render(formatDuration(m.elapsed) + " elapsed"))
		}
		b.WriteString("\n")

	case stateRefreshing:
		b.WriteString(m.spinner.View())
		b.WriteString(" Refreshing access token...\n")

	case stateExchanging:
		b.WriteString(m.spinner.View())
		b.WriteString(" Completing login...\n")

	default:
		b.WriteString(m.spinner.View())
		b.WriteString(" Loading saved login...\n")
	}

	b.WriteString(m.viewStatusLog())
	return b.String()
}

// viewSuccess is shown once a session is ready.
func (m Model) viewSuccess() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleOK.Render("  ✓ Logged in to Floq"))
	b.WriteString("\n\n")

	b.WriteString(styleBold.Render("Name:        "))
	b.WriteString(m.name + "\n")

	b.WriteString(styleBold.Render("Email:       "))
	b.WriteString(m.email + "\n")

	b.WriteString(styleBold.Render("Employee ID: "))
	b.WriteString(fmt.Sprintf("%d\n", m.employeeID))

	b.WriteString(styleBold.Render("Token valid: "))
	b.WriteString(formatDuration(m.expiresIn) + "\n")

	b.WriteString(m.viewStatusLog())
	return b.String()
}

// viewError is shown when a fatal error occurs.
func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(styleErr.Render("  ✗ Login failed"))
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

// formatDuration formats a duration as "Xh Ym", "Xm Ys" or "Xs".
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
