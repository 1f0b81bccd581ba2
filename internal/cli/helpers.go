package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"study-app/internal/backup"
	"study-app/internal/completion"
	"study-app/internal/study"
)

var errQuit = errors.New("quit")

type usageError string

func (e usageError) Error() string {
	return "usage: " + string(e)
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  help")
	fmt.Fprintln(out, "  subjects")
	fmt.Fprintln(out, "  modules <subjectID>")
	fmt.Fprintln(out, "  module <moduleID>")
	fmt.Fprintln(out, "  quiz <moduleID>")
	fmt.Fprintln(out, "  resume <attemptID>")
	fmt.Fprintln(out, "  regenerate <moduleID>")
	fmt.Fprintln(out, "  attempts <moduleID>")
	fmt.Fprintln(out, "  review <attemptID>")
	fmt.Fprintln(out, "  chat")
	fmt.Fprintln(out, "  backup <path>")
	fmt.Fprintln(out, "  restore <path>")
	fmt.Fprintln(out, "  legal")
	fmt.Fprintln(out, "  exit")
}

func parseIDArg(args []string, usage string) (int64, error) {
	if len(args) != 2 {
		return 0, usageError(usage)
	}

	value, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || value <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return value, nil
}

func parsePathArg(args []string, usage string) (string, error) {
	if len(args) < 2 {
		return "", usageError(usage)
	}
	return strings.Join(args[1:], " "), nil
}

// promptAnswer reads one A-D letter. ok is false for anything else; typing
// quit returns errQuit.
func promptAnswer(reader *bufio.Reader, out io.Writer) (string, bool, error) {
	fmt.Fprint(out, "Your answer (A-D, or quit): ")

	line, err := reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
		return "", false, err
	}

	answer := strings.ToUpper(strings.TrimSpace(line))
	switch answer {
	case "A", "B", "C", "D":
		return answer, true, nil
	case "Q", "QUIT":
		return "", false, errQuit
	default:
		return "", false, nil
	}
}

func promptYesNo(reader *bufio.Reader, out io.Writer, prompt string) (bool, error) {
	for {
		fmt.Fprint(out, prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(out, "Please answer yes or no.")
		}
	}
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func optionDisplay(options []study.Option, letter string) string {
	for _, option := range options {
		if option.Letter == letter {
			return fmt.Sprintf("%s. %s", option.Letter, option.Text)
		}
	}
	if letter == "" {
		return "unknown"
	}
	return letter
}

func describeError(err error) error {
	var apiErr *completion.APIError
	switch {
	case errors.Is(err, completion.ErrNotConfigured):
		return errors.New("chat is not configured; set LLM_API_KEY")
	case errors.As(err, &apiErr):
		return fmt.Errorf("language model error: %s", apiErr.Message)
	case errors.Is(err, backup.ErrInvalidBackup):
		return errors.New("that file is not a valid backup; nothing was changed")
	default:
		return err
	}
}
