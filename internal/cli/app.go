package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"study-app/internal/completion"
	"study-app/internal/study"
)

const defaultMaxInvalidAnswers = 3

// Chatter is satisfied by *completion.Client.
type Chatter interface {
	Chat(ctx context.Context, history []completion.Message) (completion.Message, error)
}

// Backups is satisfied by *backup.Manager.
type Backups interface {
	BackupToFile(ctx context.Context, dst string) (int64, error)
	RestoreFromFile(ctx context.Context, src string) error
}

type Config struct {
	Service           *study.Service
	Chat              Chatter
	Backups           Backups
	MaxInvalidAnswers int
}

type app struct {
	service    *study.Service
	chat       Chatter
	backups    Backups
	maxInvalid int
	reader     *bufio.Reader
	out        io.Writer
}

// Run drives the terminal front-end until exit or end of input.
func Run(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	if cfg.Service == nil {
		return errors.New("study service is required")
	}
	maxInvalid := cfg.MaxInvalidAnswers
	if maxInvalid <= 0 {
		maxInvalid = defaultMaxInvalidAnswers
	}

	a := &app{
		service:    cfg.Service,
		chat:       cfg.Chat,
		backups:    cfg.Backups,
		maxInvalid: maxInvalid,
		reader:     bufio.NewReader(in),
		out:        out,
	}

	fmt.Fprintln(out, "study-cli")
	printHelp(out)

	for {
		fmt.Fprint(out, "\n> ")
		line, err := a.reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if strings.ToLower(args[0]) == "exit" {
			return nil
		}
		if err := a.dispatch(ctx, args); err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			fmt.Fprintf(out, "error: %v\n", describeError(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	command := strings.ToLower(args[0])
	switch command {
	case "help":
		printHelp(a.out)
	case "subjects":
		return a.runSubjects(ctx)
	case "modules":
		id, err := parseIDArg(args, "modules <subjectID>")
		if err != nil {
			return err
		}
		return a.runModules(ctx, id)
	case "module":
		id, err := parseIDArg(args, "module <moduleID>")
		if err != nil {
			return err
		}
		return a.runModule(ctx, id)
	case "quiz":
		id, err := parseIDArg(args, "quiz <moduleID>")
		if err != nil {
			return err
		}
		return a.runQuiz(ctx, id)
	case "resume":
		id, err := parseIDArg(args, "resume <attemptID>")
		if err != nil {
			return err
		}
		return a.runResume(ctx, id)
	case "regenerate":
		id, err := parseIDArg(args, "regenerate <moduleID>")
		if err != nil {
			return err
		}
		return a.runRegenerate(ctx, id)
	case "attempts":
		id, err := parseIDArg(args, "attempts <moduleID>")
		if err != nil {
			return err
		}
		return a.runAttempts(ctx, id)
	case "review":
		id, err := parseIDArg(args, "review <attemptID>")
		if err != nil {
			return err
		}
		return a.runReview(ctx, id)
	case "chat":
		return a.runChat(ctx)
	case "backup":
		path, err := parsePathArg(args, "backup <path>")
		if err != nil {
			return err
		}
		return a.runBackup(ctx, path)
	case "restore":
		path, err := parsePathArg(args, "restore <path>")
		if err != nil {
			return err
		}
		return a.runRestore(ctx, path)
	case "legal":
		fmt.Fprintln(a.out, study.LegalNotice)
	default:
		fmt.Fprintln(a.out, "unknown command. type 'help' for usage.")
	}
	return nil
}
