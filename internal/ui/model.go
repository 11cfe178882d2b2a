package ui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"permitdesk/internal/domain"
	"permitdesk/internal/eventbus"
	"permitdesk/internal/search"
	"permitdesk/internal/ui/views"
)

// statusTTL is how long transient status messages stay visible
const statusTTL = 4 * time.Second

// Options configures the panel model
type Options struct {
	Bus    eventbus.EventBus
	Logger *zap.Logger

	// Radius is sent with nearby searches.
	Radius string

	// BackendStatus returns the initial text of the backend indicator.
	BackendStatus func() string

	// BackendLog returns recent backend output for the log pager.
	BackendLog func() []string

	// ReadyMarker prints __READY__ in the title line for terminal tests.
	ReadyMarker bool
}

// Model represents the UI state
type Model struct {
	opts   Options
	logger *zap.Logger
	state  *search.State

	mode       search.Mode
	status     search.Status
	query      textinput.Model
	lat        textinput.Model
	lon        textinput.Model
	coordField int // 0 = latitude, 1 = longitude

	results  table.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	renderer *views.Renderer

	width  int
	height int

	focusResults  bool
	showHelp      bool
	showDetail    bool
	detail        string
	statusMessage string
	statusAt      time.Time
	backendState  string
	lastRequest   string
	inPagerMode   bool

	send    func(raw []byte)
	pager   Pager
	program *tea.Program
}

// NewModel creates a new UI model
func NewModel(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	query := textinput.New()
	query.Prompt = "› "
	query.CharLimit = 200

	lat := textinput.New()
	lat.Prompt = "lat › "
	lat.Placeholder = "Latitude"
	lat.CharLimit = 32
	lat.Width = 16

	lon := textinput.New()
	lon.Prompt = "lon › "
	lon.Placeholder = "Longitude"
	lon.CharLimit = 32
	lon.Width = 16

	results := table.New(
		table.WithColumns(views.PermitColumns(0)),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("241")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	results.SetStyles(styles)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := &Model{
		opts:     opts,
		logger:   logger.Named("ui"),
		state:    search.NewState(opts.Radius),
		status:   search.StatusAll,
		query:    query,
		lat:      lat,
		lon:      lon,
		results:  results,
		spinner:  sp,
		help:     help.New(),
		keys:     defaultKeyMap(),
		renderer: views.NewRenderer(),
	}
	if opts.BackendStatus != nil {
		m.backendState = opts.BackendStatus()
	}
	m.focusInputs()
	return m
}

// SetProgram sets the program reference for terminal management
func (m *Model) SetProgram(p *tea.Program) {
	m.program = p
	if m.pager == nil {
		m.pager = &ovPager{program: p}
	}
}

// SetPager replaces the pager used for the backend log and raw JSON
func (m *Model) SetPager(p Pager) {
	m.pager = p
}

// SetSender sets where encoded requests go
func (m *Model) SetSender(send func(raw []byte)) {
	m.send = send
}

// Search exposes the submission state
func (m *Model) Search() *search.State {
	return m.state
}

// Mode returns the selected search mode
func (m *Model) Mode() search.Mode {
	return m.mode
}

// StatusFilter returns the selected status filter
func (m *Model) StatusFilter() search.Status {
	return m.status
}

// Init returns an initial command
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case OutboundMsg:
		m.receive(msg.Message)
		return m, nil

	case EventMsg:
		return m, m.handleEvent(msg.Event)

	case revealMsg:
		return m, m.setStatus("Panel is already open")

	case sentMsg:
		m.logger.Debug("request sent", zap.String("request_id", msg.id))
		return m, nil

	case spinner.TickMsg:
		if !m.state.Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pagerDoneMsg:
		if msg.err != nil {
			m.logger.Warn("pager failed", zap.String("what", msg.what), zap.Error(msg.err))
			return m, m.setStatus(fmt.Sprintf("Failed to show %s: %v", msg.what, msg.err))
		}
		return m, nil

	case pauseRenderingMsg:
		m.inPagerMode = true
		return m, nil

	case resumeRenderingMsg:
		m.inPagerMode = false
		return m, nil

	case clearStatusMsg:
		if msg.at.Equal(m.statusAt) {
			m.statusMessage = ""
		}
		return m, nil
	}

	return m, m.updateInputs(msg)
}

// View renders the UI
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var inputs []string
	if m.mode == search.ModeNearby {
		inputs = []string{m.lat.View(), m.lon.View()}
	} else {
		inputs = []string{m.query.View()}
	}

	modes := []string{"Name", "Address", "Nearby"}

	backend := m.backendState
	if m.lastRequest != "" {
		backend = strings.TrimPrefix(backend+" · "+m.lastRequest, " · ")
	}

	state := views.ViewState{
		Width:         m.width,
		Height:        m.height,
		Modes:         modes,
		ActiveMode:    int(m.mode),
		Status:        m.status.Label(),
		Inputs:        inputs,
		Loading:       m.state.Loading(),
		SpinnerView:   m.spinner.View(),
		Error:         m.state.Err,
		Displayed:     m.state.Phase == search.PhaseDisplayed,
		ResultCount:   len(m.state.Permits),
		Table:         m.results.View(),
		BackendState:  backend,
		StatusMessage: m.statusMessage,
		FocusResults:  m.focusResults,
		ShowHelp:      m.showHelp,
		ShowDetail:    m.showDetail,
		Detail:        m.detail,
		ReadyMarker:   m.opts.ReadyMarker,
	}
	if m.focusResults {
		state.HelpView = m.help.View(resultKeys{m.keys})
	} else {
		state.HelpView = m.help.View(formKeys{m.keys})
	}
	if m.showHelp {
		state.HelpContent = m.renderer.RenderHelpContent(helpSections)
	}
	return m.renderer.Render(state)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}

	// Popups swallow everything but their close keys
	if m.showDetail || m.showHelp {
		if key.Matches(msg, m.keys.Close) || (m.showDetail && msg.Type == tea.KeyEnter) {
			m.showDetail = false
			m.showHelp = false
			m.detail = ""
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.NextStatus):
		m.status = m.status.Next()
		return m, nil
	case key.Matches(msg, m.keys.Retry):
		if m.state.Phase != search.PhaseErrored {
			return m, nil
		}
		return m, m.begin(m.state.Retry())
	case key.Matches(msg, m.keys.BackendLog):
		return m, m.showBackendLog()
	case key.Matches(msg, m.keys.Focus):
		m.toggleFocus()
		return m, nil
	}

	if m.focusResults {
		return m.handleResultsKey(msg)
	}
	return m.handleFormKey(msg)
}

func (m *Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		return m, m.submit()
	case key.Matches(msg, m.keys.NextMode):
		m.mode = m.mode.Next()
		m.coordField = 0
		m.focusInputs()
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		if m.mode == search.ModeNearby {
			m.coordField = 1 - m.coordField
			m.focusInputs()
		}
		return m, nil
	}
	return m, m.updateInputs(msg)
}

func (m *Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.Details):
		if p, ok := m.selectedPermit(); ok {
			m.detail = m.renderer.RenderPermitDetail(p)
			m.showDetail = true
		}
		return m, nil
	case key.Matches(msg, m.keys.RawJSON):
		data, err := json.MarshalIndent(m.state.Permits, "", "  ")
		if err != nil {
			return m, m.setStatus(err.Error())
		}
		return m, m.runPager("raw response", string(data))
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

// submit derives a request from the form; invalid input never leaves the panel
func (m *Model) submit() tea.Cmd {
	return m.begin(m.state.Begin(search.Request{
		Mode:   m.mode,
		Query:  m.query.Value(),
		Lat:    m.lat.Value(),
		Lon:    m.lon.Value(),
		Status: m.status,
	}))
}

func (m *Model) begin(req domain.Request, err error) tea.Cmd {
	if err != nil {
		return m.setStatus(err.Error())
	}

	raw, err := json.Marshal(req)
	if err != nil {
		return m.setStatus(err.Error())
	}

	m.logger.Debug("submitting search",
		zap.String("request_id", req.ID),
		zap.String("endpoint", req.Endpoint),
		zap.Any("params", req.Params))

	send := m.send
	post := func() tea.Msg {
		if send != nil {
			send(raw)
		}
		return sentMsg{id: req.ID}
	}
	return tea.Batch(m.spinner.Tick, post)
}

func (m *Model) receive(out domain.Outbound) {
	if !m.state.Receive(out) {
		m.logger.Debug("ignoring stale reply", zap.String("request_id", out.ID), zap.String("pending", m.state.Pending()))
		return
	}

	m.results.SetRows(views.PermitRows(m.state.Permits))
	m.results.SetCursor(0)
	if len(m.state.Permits) == 0 && m.focusResults {
		m.toggleFocus()
	}
}

func (m *Model) handleEvent(e eventbus.DomainEvent) tea.Cmd {
	switch ev := e.(type) {
	case eventbus.BackendReadyEvent:
		m.backendState = fmt.Sprintf("backend ready · pid %d", ev.PID)
	case eventbus.BackendExitedEvent:
		m.backendState = fmt.Sprintf("backend exited (code %d)", ev.ExitCode)
		return m.setStatus("Backend stopped. Reopen the panel to restart it.")
	case eventbus.BackendFailedEvent:
		m.backendState = "backend failed"
		if ev.Err != nil {
			return m.setStatus(ev.Err.Error())
		}
	case eventbus.RequestForwardedEvent:
		m.lastRequest = fmt.Sprintf("%s %s", ev.Endpoint, ev.Duration.Round(time.Millisecond))
	case eventbus.RequestFailedEvent:
		m.lastRequest = fmt.Sprintf("%s failed", ev.Endpoint)
	}
	return nil
}

func (m *Model) showBackendLog() tea.Cmd {
	if m.opts.BackendLog == nil {
		return m.setStatus("No backend output available")
	}
	lines := m.opts.BackendLog()
	if len(lines) == 0 {
		return m.setStatus("No backend output yet")
	}
	return m.runPager("backend log", strings.Join(lines, "\n"))
}

// runPager shows content in the pager, pausing rendering while it runs
func (m *Model) runPager(what, content string) tea.Cmd {
	if m.pager == nil {
		return m.setStatus("Pager unavailable")
	}
	pager := m.pager
	program := m.program
	return func() tea.Msg {
		if program != nil {
			program.Send(pauseRenderingMsg{})
		}
		err := pager.Show(content)
		if program != nil {
			program.Send(resumeRenderingMsg{})
		}
		return pagerDoneMsg{what: what, err: err}
	}
}

func (m *Model) setStatus(msg string) tea.Cmd {
	at := time.Now()
	m.statusMessage = msg
	m.statusAt = at
	return tea.Tick(statusTTL, func(time.Time) tea.Msg { return clearStatusMsg{at: at} })
}

func (m *Model) selectedPermit() (domain.Permit, bool) {
	i := m.results.Cursor()
	if i < 0 || i >= len(m.state.Permits) {
		return domain.Permit{}, false
	}
	return m.state.Permits[i], true
}

func (m *Model) toggleFocus() {
	if !m.focusResults && len(m.state.Permits) > 0 && m.state.Phase == search.PhaseDisplayed {
		m.focusResults = true
		m.query.Blur()
		m.lat.Blur()
		m.lon.Blur()
		m.results.Focus()
		return
	}
	m.focusResults = false
	m.results.Blur()
	m.focusInputs()
}

// focusInputs focuses the text input that matches the mode
func (m *Model) focusInputs() {
	m.query.Blur()
	m.lat.Blur()
	m.lon.Blur()

	switch m.mode {
	case search.ModeNearby:
		if m.coordField == 0 {
			m.lat.Focus()
		} else {
			m.lon.Focus()
		}
	case search.ModeAddress:
		m.query.Placeholder = "Search by street address..."
		m.query.Focus()
	default:
		m.query.Placeholder = "Search by applicant name..."
		m.query.Focus()
	}
}

func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	if m.focusResults {
		return nil
	}
	var cmd tea.Cmd
	switch {
	case m.mode != search.ModeNearby:
		m.query, cmd = m.query.Update(msg)
	case m.coordField == 0:
		m.lat, cmd = m.lat.Update(msg)
	default:
		m.lon, cmd = m.lon.Update(msg)
	}
	return cmd
}

func (m *Model) resize() {
	inner := m.width - 4
	m.results.SetColumns(views.PermitColumns(inner))
	m.results.SetWidth(inner)
	h := m.height - 14
	if h < 3 {
		h = 3
	}
	m.results.SetHeight(h)
	if w := inner - 10; w > 10 {
		m.query.Width = w
	}
}
