package cli

import (
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"herohire/internal/session"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := deps.Out
			ok := true

			for _, tool := range []string{deps.Config.Audio.RecorderCommand, deps.Config.Audio.PlayerCommand} {
				if _, err := exec.LookPath(tool); err != nil {
					f.SetupCheck(tool, false, "not found. Install ffmpeg (it ships ffplay)")
					ok = false
				} else {
					f.SetupCheck(tool, true, "installed")
				}
			}

			f.SetupCheck("Microphone", true, deps.Config.Audio.InputFormat+" / "+deps.Config.Audio.InputDevice)
			f.SetupCheck("Backend", true, deps.Config.Backend.BaseURL)

			if deps.Config.Deepgram.CaptionsEnabled() {
				f.SetupCheck("Live captions", true, "Deepgram "+deps.Config.Deepgram.Model)
			} else {
				f.SetupCheck("Live captions", true, "off. Set DEEPGRAM_API_KEY to enable")
			}

			f.SetupCheck("State file", true, deps.Config.State.Path)
			f.SetupCheck("Session", true, describeSession(deps.Sessions, time.Now()))

			if ok {
				f.Success("All prerequisites met. Ready to interview!")
			} else {
				f.Warning("Some prerequisites are missing.")
			}
			return nil
		},
	}
}

func describeSession(sessions Sessions, now time.Time) string {
	current, ok := sessions.Load()
	if !ok {
		return "not signed in"
	}
	expiry, ok := session.TokenExpiry(current.IdentityToken)
	switch {
	case !ok:
		return "meeting " + current.MeetingCode
	case now.Before(expiry):
		return "meeting " + current.MeetingCode + ", token valid until " + expiry.Local().Format(time.DateTime)
	default:
		return "meeting " + current.MeetingCode + ", token expired; join again to sign in"
	}
}
