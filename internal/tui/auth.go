package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/hogwarts/internal/session"
	"github.com/naveenspark/hogwarts/internal/validate"
	"github.com/naveenspark/hogwarts/pkg/client"
)

type authMode int

const (
	authLogin authMode = iota
	authRegister
)

type authField int

const (
	fieldName authField = iota
	fieldEmail
	fieldPassword
	fieldConfirm
	numAuthFields
)

var authLabels = [numAuthFields]string{"name", "email", "password", "confirm"}

type loginResultMsg struct{ err error }

type registerResultMsg struct {
	message string
	err     error
}

// authModel is the sign-in / sign-up form. A successful sign-in is picked up
// by App through loginResultMsg; registering never signs in.
type authModel struct {
	session    *session.Manager
	mode       authMode
	fields     [numAuthFields]string
	focus      authField
	errs       *validate.Errors
	status     string
	statusOK   bool
	submitting bool
}

func newAuthModel(s *session.Manager) authModel {
	return authModel{session: s, focus: fieldEmail}
}

// visibleFields lists the inputs for the current mode in tab order.
func (m authModel) visibleFields() []authField {
	if m.mode == authRegister {
		return []authField{fieldName, fieldEmail, fieldPassword, fieldConfirm}
	}
	return []authField{fieldEmail, fieldPassword}
}

func (m authModel) Init() tea.Cmd {
	return nil
}

// withStatus shows msg above the form.
func (m authModel) withStatus(msg string, ok bool) authModel {
	m.status = msg
	m.statusOK = ok
	return m
}

func (m authModel) Update(msg tea.Msg) (authModel, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.errs = nil
			m.status = errText(msg.err)
			m.statusOK = false
			return m, nil
		}
		m.fields[fieldPassword] = ""
		m.status = ""
		return m, nil

	case registerResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.status = errText(msg.err)
			m.statusOK = false
			return m, nil
		}
		email := m.fields[fieldEmail]
		m.fields = [numAuthFields]string{}
		m.fields[fieldEmail] = email
		m.mode = authLogin
		m.focus = fieldPassword
		m.status = msgRegistered
		m.statusOK = true
		return m, nil

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m authModel) updateKeys(msg tea.KeyMsg) (authModel, tea.Cmd) {
	fields := m.visibleFields()
	idx := 0
	for i, f := range fields {
		if f == m.focus {
			idx = i
		}
	}

	switch msg.String() {
	case "ctrl+s":
		return m.submit()
	case "ctrl+t":
		if m.mode == authLogin {
			m.mode = authRegister
			m.focus = fieldName
		} else {
			m.mode = authLogin
			m.focus = fieldEmail
		}
		m.errs = nil
		m.status = ""
	case "tab", "down":
		m.focus = fields[(idx+1)%len(fields)]
	case "shift+tab", "up":
		m.focus = fields[(idx-1+len(fields))%len(fields)]
	case "enter":
		if idx == len(fields)-1 {
			return m.submit()
		}
		m.focus = fields[idx+1]
	default:
		m.fields[m.focus] = editInput(m.fields[m.focus], msg)
	}
	return m, nil
}

func (m authModel) submit() (authModel, tea.Cmd) {
	m.status = ""
	m.errs = nil
	email := strings.TrimSpace(m.fields[fieldEmail])
	password := m.fields[fieldPassword]

	if m.mode == authLogin {
		if err := validate.Login(email, password); err != nil {
			m.errs, _ = err.(*validate.Errors)
			return m, nil
		}
		m.submitting = true
		sess := m.session
		return m, func() tea.Msg {
			return loginResultMsg{err: sess.Login(context.Background(), email, password)}
		}
	}

	form := validate.RegisterForm{
		Name:            m.fields[fieldName],
		Email:           email,
		Password:        password,
		ConfirmPassword: m.fields[fieldConfirm],
	}
	if err := validate.Register(form); err != nil {
		m.errs, _ = err.(*validate.Errors)
		return m, nil
	}
	m.submitting = true
	sess := m.session
	req := client.RegisterRequest{Email: email, Password: password, Username: strings.TrimSpace(form.Name)}
	return m, func() tea.Msg {
		text, err := sess.Register(context.Background(), req)
		return registerResultMsg{message: text, err: err}
	}
}

func (m authModel) View() string {
	var b strings.Builder

	title := "SIGN IN"
	other := "no account? ctrl+t to register"
	if m.mode == authRegister {
		title = "CREATE ACCOUNT"
		other = "have an account? ctrl+t to sign in"
	}
	b.WriteString(" " + goldStyle.Bold(true).Render(title) + "  " + metaStyle.Render(other) + "\n\n")

	if m.status != "" {
		style := errorStyle
		if m.statusOK {
			style = successStyle
		}
		b.WriteString(" " + style.Render(m.status) + "\n\n")
	}

	errKeys := map[authField]string{fieldName: "name", fieldEmail: "email", fieldPassword: "password", fieldConfirm: "confirmPassword"}
	for _, f := range m.visibleFields() {
		secret := f == fieldPassword || f == fieldConfirm
		b.WriteString(renderField(authLabels[f], m.fields[f], f == m.focus, secret, m.errs.Get(errKeys[f])) + "\n")
	}

	b.WriteString("\n")
	if m.submitting {
		b.WriteString(" " + dimStyle.Render(msgLoading))
	}
	return b.String()
}
