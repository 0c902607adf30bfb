package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/askbetter/clients/api"
	"github.com/dohr-michael/askbetter/internal/config"
	"github.com/dohr-michael/askbetter/internal/dialogue"
	"github.com/dohr-michael/askbetter/internal/docstore"
	wsprotocol "github.com/dohr-michael/askbetter/internal/gateway/ws"
	"github.com/dohr-michael/askbetter/internal/i18n"
	"github.com/dohr-michael/askbetter/internal/modes"
	"github.com/dohr-michael/askbetter/internal/theme"
)

// NewAskCommand returns the ask subcommand.
func NewAskCommand() *cli.Command {
	return &cli.Command{
		Name:  "ask",
		Usage: "Start an interactive refinement conversation",
		Flags: []cli.Flag{
			gatewayFlag(),
			&cli.StringFlag{
				Name:    "email",
				Aliases: []string{"e"},
				Usage:   "Account email (prompted when empty)",
			},
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Mode ID (PROMPT_BETTER, ASK_BETTER, CODING_MODE, MARKETING_101)",
			},
			&cli.StringFlag{
				Name:    "tone",
				Aliases: []string{"t"},
				Usage:   "Tone ID or label",
			},
			&cli.StringFlag{
				Name:  "lang",
				Usage: "Display language (default from profile)",
			},
		},
		Action: runAsk,
	}
}

type turnParams struct {
	Text string `json:"text,omitempty"`
	Mode string `json:"mode,omitempty"`
	Tone string `json:"tone,omitempty"`
}

// askSession is the terminal side of one conversation.
type askSession struct {
	conn    *api.Conn
	p       *prompter
	r       *theme.Renderer
	catalog *i18n.Catalog
	lang    string

	state   dialogue.State
	shown   int
	lastErr string
}

func runAsk(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd, true)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	catalog, err := i18n.Load()
	if err != nil {
		return err
	}

	client := api.New(gatewayURL(cmd, cfg))
	p := newPrompter()
	sess, err := signIn(ctx, client, p, cmd.String("email"))
	if err != nil {
		return err
	}

	lang, th := preferences(catalog, cfg, sess.Profile, cmd.String("lang"))
	r, err := theme.NewRenderer(th, terminalWidth(), func(key string) string { return catalog.T(lang, key) })
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}

	fmt.Println(r.Styles().Title.Render(catalog.T(lang, "app.title")))
	fmt.Printf("%s %s\n", catalog.T(lang, "auth.signed_in_as"), sess.User.Email)
	if st, err := client.Status(ctx); err == nil && !st.Ready {
		fmt.Println(r.Error(catalog.T(lang, "ui.config_error") + " " + st.ConfigError))
	}

	conn, err := client.Dial(ctx)
	if err != nil {
		return fmt.Errorf("connect to gateway: %w", err)
	}
	defer conn.Close()

	s := &askSession{conn: conn, p: p, r: r, catalog: catalog, lang: lang}

	mode := strings.ToUpper(cmd.String("mode"))
	if mode == "" {
		if mode, err = s.chooseMode(); err != nil {
			return err
		}
	}
	if !s.call(wsprotocol.MethodSelect, turnParams{Mode: mode, Tone: cmd.String("tone")}) {
		return nil
	}
	if s.state.Mode == "" {
		return fmt.Errorf("mode %q not selected", mode)
	}
	s.showPlaceholder()
	fmt.Println(catalog.T(lang, "ui.commands"))

	return s.loop()
}

// preferences resolves the display language and theme. Flags beat the
// profile, which beats the config defaults.
func preferences(catalog *i18n.Catalog, cfg *config.Config, profile *docstore.Profile, langFlag string) (string, theme.Name) {
	lang, th := cfg.UI.DefaultLanguage, cfg.UI.DefaultTheme
	if profile != nil {
		if profile.Language != "" {
			lang = profile.Language
		}
		if profile.Theme != "" {
			th = profile.Theme
		}
	}
	if langFlag != "" {
		lang = langFlag
	}
	name, err := theme.Parse(th)
	if err != nil {
		name = theme.Default
	}
	return catalog.Match(lang), name
}

func (s *askSession) t(key string) string { return s.catalog.T(s.lang, key) }

func (s *askSession) loop() error {
	for {
		line, err := s.p.line("> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var ok bool
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/reset":
			ok = s.call(wsprotocol.MethodReset, nil)
		case line == "/new":
			ok = s.call(wsprotocol.MethodNewSession, nil)
		case line == "/mode":
			mode, err := s.chooseMode()
			if err != nil {
				return err
			}
			if ok = s.call(wsprotocol.MethodSelect, turnParams{Mode: mode, Tone: string(s.state.Tone)}); ok {
				s.showPlaceholder()
			}
		case line == "/tone":
			tone, err := s.chooseTone()
			if err != nil {
				return err
			}
			ok = s.call(wsprotocol.MethodSelect, turnParams{Mode: string(s.state.Mode), Tone: tone})
		case strings.HasPrefix(line, "/"):
			fmt.Println(s.t("ui.commands"))
			continue
		default:
			fmt.Fprintln(os.Stderr, s.r.Styles().Muted.Render(s.t("ui.loading")))
			ok = s.call(wsprotocol.MethodSubmit, turnParams{Text: line})
		}
		if !ok {
			return nil
		}
	}
}

// call sends a request and renders its result. It returns false once the
// session has ended.
func (s *askSession) call(method wsprotocol.Method, params any) bool {
	res, err := s.conn.Call(method, params, s.onEvent)
	switch {
	case errors.Is(err, api.ErrSignedOut):
		fmt.Println(s.t("auth.sign_out"))
		return false
	case err != nil:
		fmt.Println(s.r.Error(err.Error()))
		return true
	}

	if res.Ignored {
		fmt.Println(s.r.Styles().Muted.Render(s.t("ui.loading")))
	}
	if res.Warning != "" {
		fmt.Println(s.r.Error(res.Warning))
	}
	s.render(res.State)
	return true
}

func (s *askSession) onEvent(f wsprotocol.Frame) {
	if f.Event == wsprotocol.EventHistorySaved {
		fmt.Println(s.r.Styles().Muted.Render(s.t("ui.history_saved")))
	}
}

// render prints the assistant messages not shown yet, then the error and
// refined outputs of st.
func (s *askSession) render(st dialogue.State) {
	if len(st.Messages) < s.shown {
		s.shown = 0
	}
	for _, m := range st.Messages[s.shown:] {
		if m.Sender == dialogue.SenderAssistant {
			fmt.Println(s.r.Message(m))
		}
	}
	s.shown = len(st.Messages)

	if st.Error != "" && st.Error != s.lastErr {
		fmt.Println(s.r.Error(st.Error))
	}
	s.lastErr = st.Error

	if out := s.r.Outputs(st.Outputs); out != "" && len(st.Messages) > len(s.state.Messages) {
		fmt.Println(out)
	}
	s.state = st
}

func (s *askSession) showPlaceholder() {
	key := "mode." + string(s.state.Mode) + ".placeholder"
	fmt.Println(s.r.Styles().Muted.Render(s.t(key)))
}

func (s *askSession) chooseMode() (string, error) {
	fmt.Println(s.r.Styles().Title.Render(s.t("mode.selection_title")))
	all := modes.All()
	for i, m := range all {
		fmt.Printf("  %d. %s\n", i+1, s.t("mode."+string(m.ID)+".name"))
	}
	i, err := s.pick(len(all))
	if err != nil {
		return "", err
	}
	return string(all[i].ID), nil
}

func (s *askSession) chooseTone() (string, error) {
	fmt.Println(s.r.Styles().Title.Render(s.t("tone.label")))
	tones := modes.Tones()
	for i, t := range tones {
		fmt.Printf("  %d. %s\n", i+1, s.t("tone."+string(t)))
	}
	i, err := s.pick(len(tones))
	if err != nil {
		return "", err
	}
	return string(tones[i]), nil
}

// pick asks for a 1-based choice until it is valid and returns its index.
func (s *askSession) pick(n int) (int, error) {
	for {
		answer, err := s.p.line(fmt.Sprintf("[1-%d]: ", n))
		if err != nil {
			return 0, err
		}
		if i, err := strconv.Atoi(answer); err == nil && i >= 1 && i <= n {
			return i - 1, nil
		}
	}
}
