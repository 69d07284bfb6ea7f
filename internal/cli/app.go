// Package cli implements the interactive terminal client: login,
// registration, logout and the chat surface.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ailice/ailice/internal/chat"
	"github.com/ailice/ailice/internal/client"
	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
)

const appName = "Ailice"

// Authenticator is the part of the API the client commands use.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (client.LoginResult, error)
	Register(ctx context.Context, form client.RegistrationForm) (string, error)
	Me(ctx context.Context, token string) (client.Me, error)
}

// App carries the session and I/O shared by every command.
type App struct {
	api     Authenticator
	session *client.Session
	in      *bufio.Reader
	out     io.Writer

	chatOptions chat.Options

	userColor   *color.Color
	botColor    *color.Color
	noticeColor *color.Color
}

func NewApp(api Authenticator, session *client.Session, in io.Reader, out io.Writer) *App {
	return &App{
		api:         api,
		session:     session,
		in:          bufio.NewReader(in),
		out:         &syncWriter{w: out},
		userColor:   color.New(color.FgCyan),
		botColor:    color.New(color.FgGreen),
		noticeColor: color.New(color.FgYellow),
	}
}

// SetChatOptions overrides the conversation timings.
func (a *App) SetChatOptions(opts chat.Options) {
	a.chatOptions = opts
}

// Banner prints the application name.
func (a *App) Banner() {
	fig := figure.NewFigure(appName, "cybermedium", true)
	fmt.Fprintln(a.out, fig.String())
}

func (a *App) notice(msg string) {
	a.noticeColor.Fprintln(a.out, msg)
}

// reportNotice prints a user-facing notice and swallows it; other errors are
// returned.
func (a *App) reportNotice(err error) error {
	if client.IsNotice(err) {
		a.notice(err.Error())
		return nil
	}
	return err
}

// Register prompts for the registration form, validates it locally and
// submits it.
func (a *App) Register(ctx context.Context) error {
	var form client.RegistrationForm
	var err error
	if form.Username, err = prompt(a.in, a.out, "Username"); err != nil {
		return err
	}
	if form.Email, err = prompt(a.in, a.out, "Email"); err != nil {
		return err
	}
	if form.Password, err = promptSecret(a.in, a.out, "Password"); err != nil {
		return err
	}
	if form.ConfirmPassword, err = promptSecret(a.in, a.out, "Confirm password"); err != nil {
		return err
	}

	if err := form.Validate(); err != nil {
		return a.reportNotice(err)
	}

	if _, err := a.api.Register(ctx, form); err != nil {
		return a.reportNotice(err)
	}
	a.notice(client.NoticeRegistered)
	return nil
}

// Login prompts for credentials and starts a session with the returned token.
func (a *App) Login(ctx context.Context) error {
	email, err := prompt(a.in, a.out, "Email")
	if err != nil {
		return err
	}
	password, err := promptSecret(a.in, a.out, "Password")
	if err != nil {
		return err
	}

	res, err := a.api.Login(ctx, email, password)
	if err != nil {
		return a.reportNotice(err)
	}
	if err := a.session.Start(ctx, res.Token); err != nil {
		return err
	}
	fmt.Fprintln(a.out, a.session.Status())
	return nil
}

// Logout drops the stored session.
func (a *App) Logout(ctx context.Context) error {
	target, err := a.session.Logout(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged out. Sign in again with `ailice login` (%s).\n", target)
	return nil
}

// WhoAmI prints the local identity and, with verify set, asks the server to
// confirm the token.
func (a *App) WhoAmI(ctx context.Context, verify bool) error {
	fmt.Fprintln(a.out, a.session.Status())
	if !verify || !a.session.LoggedIn() {
		return nil
	}
	tok, err := a.session.Token(ctx)
	if err != nil {
		return err
	}
	me, err := a.api.Me(ctx, tok)
	if err != nil {
		return a.reportNotice(err)
	}
	fmt.Fprintf(a.out, "Server confirms %s (%s), valid until %s\n", me.Email, me.Username, me.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

// Chat runs the chat surface until EOF or /quit. Typing /logout ends the
// session as well.
func (a *App) Chat(ctx context.Context) error {
	if !a.session.LoggedIn() {
		a.notice("You are not logged in. Run `ailice login` first.")
		return nil
	}

	a.Banner()
	fmt.Fprintln(a.out, a.session.Status())
	fmt.Fprintln(a.out, "Type a message and press Enter. /quit leaves, /logout signs out.")

	opts := a.chatOptions
	opts.OnEntry = a.printEntry
	opts.OnError = func(err error) { a.notice(err.Error()) }
	conv := chat.NewConversation(opts)
	defer conv.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for {
			line, err := a.in.ReadString('\n')
			if line != "" {
				select {
				case lines <- strings.TrimRight(line, "\r\n"):
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.TrimSpace(line) {
			case "/quit", "/exit":
				return nil
			case "/logout":
				conv.Close()
				return a.Logout(ctx)
			}
			if err := conv.Send(line); err != nil {
				switch {
				case errors.Is(err, chat.ErrEmptyMessage):
				case errors.Is(err, chat.ErrCoolingDown):
					a.notice(err.Error())
				default:
					return err
				}
			}
		}
	}
}

func (a *App) printEntry(e chat.Entry) {
	if e.IsUser {
		a.userColor.Fprintf(a.out, "you: %s\n", e.Text)
		return
	}
	a.botColor.Fprintf(a.out, "%s: %s\n", strings.ToLower(appName), e.Text)
}

// syncWriter serialises writes from the prompt loop and reply timers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
