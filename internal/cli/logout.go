package cli

import (
	"github.com/spf13/cobra"
)

func NewLogoutCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.Sessions.Clear(); err != nil {
				return err
			}
			deps.Out.Success("Signed out")
			return nil
		},
	}
}
