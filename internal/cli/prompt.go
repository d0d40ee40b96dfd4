package cli

import (
	"os"

	"github.com/AlecAivazis/survey/v2"
	"golang.org/x/term"
)

// Prompter abstracts survey for testability.
type Prompter interface {
	AskInput(label, def string) (string, error)
	AskConfirm(label string, def bool) (bool, error)
}

// prompter is swapped out by tests.
var prompter Prompter = surveyPrompter{}

// interactive reports whether stdin is a terminal.
var interactive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

type surveyPrompter struct{}

func (surveyPrompter) AskInput(label, def string) (string, error) {
	var ans string
	prompt := &survey.Input{Message: label, Default: def}
	if err := survey.AskOne(prompt, &ans, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return ans, nil
}

func (surveyPrompter) AskConfirm(label string, def bool) (bool, error) {
	var ans bool
	prompt := &survey.Confirm{Message: label, Default: def}
	if err := survey.AskOne(prompt, &ans); err != nil {
		return false, err
	}
	return ans, nil
}
