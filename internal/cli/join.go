package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"herohire/internal/domain"
	"herohire/internal/usecase"
)

var errInputClosed = errors.New("input closed")

func NewJoinCmd(deps *Dependencies) *cobra.Command {
	var name string
	var email string

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a mock interview",
		Long:  "Sign in with your name and email, confirm the emailed OTP if asked, then talk to the interviewer.\nPress Enter to start and stop speaking; type 'end' to leave the meeting.",
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := readLines(deps.In)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if err := runEntry(ctx, deps, lines, domain.Identity{DisplayName: name, EmailAddress: email}); err != nil {
				return err
			}
			return runConversation(ctx, deps, lines)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address")

	return cmd
}

func runEntry(ctx context.Context, deps *Dependencies, lines <-chan inputLine, flags domain.Identity) error {
	profile := deps.Login.Open()
	deps.Out.EntryHeader()

	identity := domain.Identity{
		DisplayName:  firstNonBlank(flags.DisplayName, profile.DisplayName),
		EmailAddress: firstNonBlank(flags.EmailAddress, profile.EmailAddress),
	}
	askDetails := flags.DisplayName == "" || flags.EmailAddress == ""

	for {
		if askDetails {
			var err error
			if identity.DisplayName, err = ask(deps, lines, "Name *", identity.DisplayName); err != nil {
				return err
			}
			if identity.EmailAddress, err = ask(deps, lines, "Email *", identity.EmailAddress); err != nil {
				return err
			}
		}
		askDetails = true

		result, err := deps.Login.SubmitDetails(ctx, identity)
		if err != nil {
			return err
		}
		if result.Notice != "" {
			deps.Out.Info(result.Notice)
		}
		switch result.State {
		case domain.LoginStateJoined:
			deps.Out.MeetingJoined(result.Session.MeetingCode)
			return nil
		case domain.LoginStateAwaitingOTP:
			return verifyOTP(ctx, deps, lines, identity.EmailAddress)
		}
	}
}

func verifyOTP(ctx context.Context, deps *Dependencies, lines <-chan inputLine, email string) error {
	for {
		otp, err := ask(deps, lines, "OTP *", "")
		if err != nil {
			return err
		}
		result, err := deps.Login.VerifyOTP(ctx, email, otp)
		if err != nil {
			return err
		}
		if result.Notice != "" {
			deps.Out.Info(result.Notice)
		}
		if result.State == domain.LoginStateJoined {
			deps.Out.MeetingJoined(result.Session.MeetingCode)
			return nil
		}
	}
}

func runConversation(ctx context.Context, deps *Dependencies, lines <-chan inputLine) error {
	if _, err := deps.Conversation.Open(); err != nil {
		return err
	}

	var settled time.Time
	for {
		status := deps.Conversation.Status()
		if status.State == domain.TurnStateFinished {
			return finish(deps)
		}

		var line inputLine
		var ok bool
		select {
		case <-ctx.Done():
			_ = deps.Conversation.EndMeeting(context.Background())
			return finish(deps)
		case line, ok = <-lines:
		}
		if !ok {
			_ = deps.Conversation.EndMeeting(ctx)
			return finish(deps)
		}

		switch strings.ToLower(strings.TrimSpace(line.text)) {
		case "end", "q", "quit", "exit":
			_ = deps.Conversation.EndMeeting(ctx)
			return finish(deps)
		}
		if deps.DiscardTypeahead && line.at.Before(settled) {
			continue
		}

		var err error
		switch status.State {
		case domain.TurnStateReady:
			err = deps.Conversation.Start(ctx)
		case domain.TurnStateAwaitingUserSpeech:
			err = deps.Conversation.PressMic(ctx)
		case domain.TurnStateUserRecording:
			err = deps.Conversation.ReleaseMic(ctx)
		default:
			continue
		}
		settled = time.Now()
		if errors.Is(err, usecase.ErrSessionInvalid) {
			return err
		}
	}
}

// finish shows the reach-out link after the conversation limit and
// acknowledges the final notice.
func finish(deps *Dependencies) error {
	if url := deps.Conversation.ReachOutURL(); url != "" {
		deps.Out.ReachOut(url)
	}
	return deps.Conversation.Acknowledge()
}

func ask(deps *Dependencies, lines <-chan inputLine, label string, prefill string) (string, error) {
	deps.Out.Prompt(label, prefill)
	line, ok := <-lines
	if !ok {
		return "", errInputClosed
	}
	if value := strings.TrimSpace(line.text); value != "" {
		return value, nil
	}
	return prefill, nil
}

// inputLine is one line of input and the time it was read.
type inputLine struct {
	text string
	at   time.Time
}

func readLines(r io.Reader) <-chan inputLine {
	lines := make(chan inputLine)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- inputLine{text: scanner.Text(), at: time.Now()}
		}
	}()
	return lines
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
