package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/naveenspark/hogwarts/internal/app"
	"github.com/naveenspark/hogwarts/internal/validate"
	"github.com/naveenspark/hogwarts/pkg/client"
	"github.com/naveenspark/hogwarts/pkg/domain"
)

const msgRegistered = "Registration successful! Please log in."

// prompter reads missing credentials from the command's stdin. Secrets are
// read without echo when stdin is a terminal.
type prompter struct {
	in  io.Reader
	out io.Writer
	r   *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{in: in, out: cmd.ErrOrStderr(), r: bufio.NewReader(in)}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label) //nolint:errcheck // prompt
	s, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (p *prompter) secret(label string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(p.out, "%s: ", label) //nolint:errcheck // prompt
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out) //nolint:errcheck // prompt
		if err != nil {
			return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
		}
		return string(b), nil
	}
	return p.line(label)
}

// fill prompts for each empty value in order.
func (p *prompter) fill(fields ...promptField) error {
	for _, f := range fields {
		if *f.value != "" {
			continue
		}
		read := p.line
		if f.secret {
			read = p.secret
		}
		v, err := read(f.label)
		if err != nil {
			return err
		}
		*f.value = v
	}
	return nil
}

type promptField struct {
	label  string
	value  *string
	secret bool
}

// userView is the JSON shape of a signed-in user.
type userView struct {
	ID       domain.ID `json:"id"`
	Email    string    `json:"email"`
	Username string    `json:"username,omitempty"`
	Role     string    `json:"role,omitempty"`
}

func viewUser(u *domain.User) userView {
	if u == nil {
		return userView{}
	}
	return userView{ID: u.ID, Email: u.Email, Username: u.Username, Role: u.Role}
}

func newLoginCommand(opts *RootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the library",
		Long:  "Sign in with email and password. Missing values are prompted for.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			if err := p.fill(
				promptField{label: "Email", value: &email},
				promptField{label: "Password", value: &password, secret: true},
			); err != nil {
				return err
			}
			if err := validate.Login(email, password); err != nil {
				return err
			}
			return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				if err := svc.Session.Login(ctx, strings.TrimSpace(email), password); err != nil {
					return err
				}
				u := svc.Session.User()
				return opts.output(cmd).emit(viewUser(u), func(w textWriter) {
					w.printf("Signed in as %s\n", u.DisplayName())
				})
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func newRegisterCommand(opts *RootOptions) *cobra.Command {
	var form validate.RegisterForm

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a library account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			if err := p.fill(
				promptField{label: "Name", value: &form.Name},
				promptField{label: "Email", value: &form.Email},
				promptField{label: "Password", value: &form.Password, secret: true},
				promptField{label: "Confirm password", value: &form.ConfirmPassword, secret: true},
			); err != nil {
				return err
			}
			if err := validate.Register(form); err != nil {
				return err
			}
			return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				msg, err := svc.Session.Register(ctx, client.RegisterRequest{
					Email:    strings.TrimSpace(form.Email),
					Password: form.Password,
					Username: strings.TrimSpace(form.Name),
				})
				if err != nil {
					return err
				}
				if msg == "" {
					msg = msgRegistered
				}
				return opts.output(cmd).emit(map[string]string{"message": msg}, func(w textWriter) {
					w.println(msg)
				})
			})
		},
	}

	cmd.Flags().StringVar(&form.Name, "name", "", "display name")
	cmd.Flags().StringVar(&form.Email, "email", "", "account email")
	cmd.Flags().StringVar(&form.Password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&form.ConfirmPassword, "confirm", "", "password again (prompted when omitted)")
	return cmd
}

func newLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				if err := svc.Session.Logout(); err != nil {
					return err
				}
				return opts.output(cmd).emit(map[string]string{"message": "logged out"}, func(w textWriter) {
					w.println("Logged out.")
				})
			})
		},
	}
}

func newWhoamiCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd, func(ctx context.Context, svc *app.Services) error {
				if err := requireSession(ctx, svc); err != nil {
					return err
				}
				u := svc.Session.User()
				return opts.output(cmd).emit(viewUser(u), func(w textWriter) {
					w.printf("%s <%s>", u.DisplayName(), u.Email)
					if u.IsAdmin() {
						w.printf(" admin")
					}
					w.printf("\n")
				})
			})
		},
	}
}
