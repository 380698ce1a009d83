package main

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"staffdesk/portal/internal/app"
)

// NewUserCmd creates the user command group.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage portal users",
	}

	var username string
	var passwordStdin bool
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			id, err := app.CreateUser(commandContext(cmd), cfg, logger, username, password)
			if err != nil {
				return oops.Code("USER_CREATE_FAILED").With("username", username).Wrap(err)
			}
			cmd.Printf("user %s created with id %d\n", username, id)
			return nil
		},
	}
	create.Flags().StringVar(&username, "username", "", "username to register")
	create.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	_ = create.MarkFlagRequired("username")
	cmd.AddCommand(create)

	return cmd
}

// readPassword reads one line from stdin, or prompts without echo when
// stdin is a terminal.
func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && !fromStdin && term.IsTerminal(int(f.Fd())) {
		cmd.Print("Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err != nil {
			return "", oops.Code("INPUT_FAILED").Wrap(err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", oops.Code("INPUT_FAILED").Wrap(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
