package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stemsi/mtq-judge/internal/model"
	"github.com/stemsi/mtq-judge/internal/rubric"
	"github.com/stemsi/mtq-judge/internal/scoring"
	"github.com/stemsi/mtq-judge/internal/service"
)

const helpText = `Commands:
  rounds                      list rounds
  round <id>                  select a round
  cand <id> | next | prev     select or move between candidates
  q <n> | qn | qp             go to question n (1-5), next or previous question
  set <n> <criterion> <value> score a criterion (recitation, siffat, makharij, minor_error)
  note <n> <text>             replace the comment of question n
  comments                    show or hide comments
  show                        print the score sheet
  reset                       clear all scores of the candidate
  submit                      send the scores
  detail <cand> <round> [20|30]  recorded result of a candidate
  quit`

type scoreReader interface {
	GetScoreDetail(ctx context.Context, candidateID, roundID int) (*model.ScoreDetail, error)
}

type terminal struct {
	in      *bufio.Reader
	out     io.Writer
	api     scoreReader
	console *scoring.Console
}

// confirm asks a yes/no question on the terminal.
func (t *terminal) confirm() scoring.Confirmer {
	return scoring.ConfirmFunc(func(_ context.Context, question string) bool {
		fmt.Fprintf(t.out, "%s [y/N] ", question)
		line, _ := t.in.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes" || answer == "ya"
	})
}

func (t *terminal) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(t.out, "> ")
		line, err := t.in.ReadString('\n')
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}
		if err := t.exec(ctx, fields[0], fields[1:]); err != nil {
			fmt.Fprintf(t.out, "! %v\n", err)
		}
	}
}

func (t *terminal) exec(ctx context.Context, cmd string, args []string) error {
	var (
		v   scoring.View
		err error
	)
	switch cmd {
	case "help":
		fmt.Fprintln(t.out, helpText)
		return nil
	case "rounds":
		rounds, err := t.console.Rounds(ctx)
		if err != nil {
			return err
		}
		for _, r := range rounds {
			status := "closed"
			if r.IsActive {
				status = "active"
			}
			fmt.Fprintf(t.out, "  [%d] %s (%s)\n", r.ID, r.Name, status)
		}
		return nil
	case "round":
		id, err := intArg(args, 0)
		if err != nil {
			return err
		}
		v, err = t.console.SelectRound(ctx, id)
		if err != nil {
			return err
		}
		printCandidates(t.out, v)
		return nil
	case "cand":
		id, argErr := intArg(args, 0)
		if argErr != nil {
			return argErr
		}
		v, err = t.console.SelectCandidate(id)
	case "next":
		v = t.console.NextCandidate()
	case "prev":
		v = t.console.PrevCandidate()
	case "q":
		n, argErr := intArg(args, 0)
		if argErr != nil {
			return argErr
		}
		v, err = t.console.JumpToQuestion(n - 1)
	case "qn":
		v, err = t.console.NextQuestion()
	case "qp":
		v, err = t.console.PrevQuestion()
	case "set":
		if len(args) != 3 {
			return errors.New("usage: set <n> <criterion> <value>")
		}
		n, argErr := intArg(args, 0)
		if argErr != nil {
			return argErr
		}
		value, argErr := strconv.ParseFloat(args[2], 64)
		if argErr != nil {
			return fmt.Errorf("invalid value %q", args[2])
		}
		v, err = t.console.SetCriterion(n-1, rubric.Criterion(args[1]), value)
	case "note":
		n, argErr := intArg(args, 0)
		if argErr != nil {
			return argErr
		}
		v, err = t.console.SetComment(n-1, strings.Join(args[1:], " "))
	case "comments":
		v = t.console.ToggleComments()
	case "show":
		v = t.console.View()
	case "reset":
		v, err = t.console.Reset(ctx, t.confirm())
	case "submit":
		return t.submit(ctx)
	case "detail":
		return t.detail(ctx, args)
	default:
		return fmt.Errorf("unknown command %q, type help", cmd)
	}
	if err != nil {
		return err
	}
	printSheet(t.out, v)
	return nil
}

func (t *terminal) submit(ctx context.Context) error {
	out, v, err := t.console.Submit(ctx, t.confirm())
	if err != nil {
		var subErr *scoring.SubmissionError
		if errors.As(err, &subErr) {
			return errors.New(subErr.Reason)
		}
		return err
	}

	msg := out.Ack.Message
	if msg == "" {
		msg = "Nilai tersimpan."
	}
	fmt.Fprintf(t.out, "%s Total %g.\n", msg, out.Submission.Total)
	if out.RoundComplete {
		fmt.Fprintln(t.out, "Semua peserta di babak ini sudah dinilai.")
		return nil
	}
	printSheet(t.out, v)
	return nil
}

func (t *terminal) detail(ctx context.Context, args []string) error {
	candidateID, err := intArg(args, 0)
	if err != nil {
		return err
	}
	roundID, err := intArg(args, 1)
	if err != nil {
		return err
	}
	var scale float64
	if len(args) > 2 {
		if scale, err = strconv.ParseFloat(args[2], 64); err != nil || (scale != 20 && scale != 30) {
			return errors.New("scale must be 20 or 30")
		}
	}

	d, err := t.api.GetScoreDetail(ctx, candidateID, roundID)
	if err != nil {
		return err
	}
	d, err = service.ConvertDetail(d, scale)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "  candidate %d, round %d: %g / %g\n", d.CandidateID, d.RoundID, d.Total, d.ScaleMax)
	return nil
}

func intArg(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, errors.New("missing argument")
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[i])
	}
	return n, nil
}

func printCandidates(w io.Writer, v scoring.View) {
	if v.Round != nil {
		fmt.Fprintf(w, "Round %s\n", v.Round.Name)
	}
	if len(v.Candidates) == 0 {
		fmt.Fprintln(w, "  no candidates")
		return
	}
	for _, c := range v.Candidates {
		fmt.Fprintf(w, "  [%d] %s %s\n", c.ID, c.RegistrationNumber, c.Name)
	}
}

func printSheet(w io.Writer, v scoring.View) {
	if v.Candidate == nil {
		fmt.Fprintf(w, "State: %s\n", v.State)
		return
	}
	fmt.Fprintf(w, "%s (%s)  %d/%d candidates\n", v.Candidate.Name, v.Candidate.RegistrationNumber,
		v.CandidateIndex+1, len(v.Candidates))

	criteria := rubric.Criteria()
	for _, q := range v.Questions {
		marker := " "
		if q.Number-1 == v.CurrentQuestion {
			marker = ">"
		}
		fmt.Fprintf(w, "%s Q%d", marker, q.Number)
		for _, c := range criteria {
			fmt.Fprintf(w, "  %s=%s", c, q.Get(c))
		}
		if q.Total != nil {
			fmt.Fprintf(w, "  total=%g", *q.Total)
		}
		fmt.Fprintln(w)
		if v.ShowComments && q.Comment != "" {
			fmt.Fprintf(w, "    # %s\n", q.Comment)
		}
	}

	fmt.Fprintf(w, "Total %g / %g", v.Total, v.MaxTotal)
	if v.SubmitBlocker != "" {
		fmt.Fprintf(w, "  (cannot submit: %s)", v.SubmitBlocker)
	}
	fmt.Fprintln(w)
}
