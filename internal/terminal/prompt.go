package terminal

import (
	"errors"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	surveyterm "github.com/AlecAivazis/survey/v2/terminal"
	"github.com/chzyer/readline"
)

// ErrQuit is returned by a Prompter when the user asks to leave.
var ErrQuit = errors.New("quit")

// Prompter collects input from the user.
type Prompter interface {
	// Line reads one chat line.
	Line() (string, error)
	Credentials(signUp bool) (email, password string, err error)
	// Choose returns the index of the picked option.
	Choose(message string, options []string, current int) (int, error)
	Confirm(message string) (bool, error)
}

// Console prompts on the controlling terminal.
type Console struct {
	rl *readline.Instance
}

func NewConsole(historyFile string) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptColor.Sprint("> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "/quit",
		HistoryFile:       historyFile,
		HistorySearchFold: true,
	})
	if err != nil {
		return nil, err
	}
	return &Console{rl: rl}, nil
}

func (c *Console) Close() error { return c.rl.Close() }

func (c *Console) Line() (string, error) {
	line, err := c.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", ErrQuit
	}
	return line, err
}

func (c *Console) Credentials(signUp bool) (string, string, error) {
	message := "Email"
	if signUp {
		message = "Email for the new account"
	}
	answers := struct {
		Email    string
		Password string
	}{}
	questions := []*survey.Question{
		{
			Name:      "email",
			Prompt:    &survey.Input{Message: message},
			Validate:  survey.Required,
			Transform: survey.TransformString(strings.TrimSpace),
		},
		{
			Name:     "password",
			Prompt:   &survey.Password{Message: "Password"},
			Validate: survey.Required,
		},
	}
	if err := survey.Ask(questions, &answers); err != nil {
		return "", "", surveyErr(err)
	}
	return answers.Email, answers.Password, nil
}

func (c *Console) Choose(message string, options []string, current int) (int, error) {
	var index int
	prompt := &survey.Select{Message: message, Options: options}
	if current >= 0 && current < len(options) {
		prompt.Default = current
	}
	if err := survey.AskOne(prompt, &index); err != nil {
		return 0, surveyErr(err)
	}
	return index, nil
}

func (c *Console) Confirm(message string) (bool, error) {
	var ok bool
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: true}, &ok); err != nil {
		return false, surveyErr(err)
	}
	return ok, nil
}

func surveyErr(err error) error {
	if errors.Is(err, surveyterm.InterruptErr) {
		return ErrQuit
	}
	return err
}
