package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"herohire/internal/config"
	"herohire/internal/domain"
	"herohire/internal/output"
	"herohire/internal/version"
)

// LoginFlow is the entry form.
type LoginFlow interface {
	Open() domain.Identity
	SubmitDetails(ctx context.Context, identity domain.Identity) (domain.LoginResult, error)
	VerifyOTP(ctx context.Context, email string, otp string) (domain.LoginResult, error)
}

// Conversation is the interview view.
type Conversation interface {
	Open() (domain.Session, error)
	Start(ctx context.Context) error
	PressMic(ctx context.Context) error
	ReleaseMic(ctx context.Context) error
	EndMeeting(ctx context.Context) error
	Acknowledge() error
	Status() domain.Status
	ReachOutURL() string
}

// Sessions reads and forgets the stored session.
type Sessions interface {
	Load() (domain.Session, bool)
	Clear() error
}

type Dependencies struct {
	Login        LoginFlow
	Conversation Conversation
	Sessions     Sessions
	Config       config.Config
	In           io.Reader
	Out          *output.Formatter

	// DiscardTypeahead drops lines typed while a blocking action was
	// running, so an impatient Enter does not press the mic later.
	DiscardTypeahead bool
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "herohire",
		Short:         "Practice voice interviews from the terminal",
		Long:          "Join a mock interview, answer the interviewer by voice and hear the next question, all from a terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.AddCommand(NewJoinCmd(deps))
	rootCmd.AddCommand(NewLogoutCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), version.Full()+"\n")
			return err
		},
	}
}
