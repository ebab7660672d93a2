package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docchat/internal/auth"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage docchat accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd <username>",
	Short: "Change an account's password",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserPasswd,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

func init() {
	userAddCmd.Flags().String("role", string(auth.RoleUser), "account role: user or admin")
	for _, c := range []*cobra.Command{userAddCmd, userPasswdCmd} {
		c.Flags().String("password", "", "password (prompted when omitted)")
	}
	userCmd.AddCommand(userAddCmd, userPasswdCmd, userListCmd)
	rootCmd.AddCommand(userCmd)
}

// passwordFlagOrPrompt returns --password or asks for one with masked input.
func passwordFlagOrPrompt(cmd *cobra.Command) (string, error) {
	if pw, _ := cmd.Flags().GetString("password"); pw != "" {
		return pw, nil
	}
	prompt := promptui.Prompt{
		Label: "Password",
		Mask:  '*',
		Validate: func(s string) error {
			if len(s) < 8 {
				return errors.New("password must be at least 8 characters")
			}
			return nil
		},
	}
	return prompt.Run()
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	roleStr, _ := cmd.Flags().GetString("role")
	role, err := auth.ParseRole(roleStr)
	if err != nil {
		return err
	}
	password, err := passwordFlagOrPrompt(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.users.Create(ctx, args[0], password, role)
	if err != nil {
		return err
	}
	fmt.Printf("Created %s %q (%s)\n", u.Role, u.Username, u.ID)
	return nil
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	password, err := passwordFlagOrPrompt(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.users.SetPassword(ctx, args[0], password); err != nil {
		return err
	}
	fmt.Printf("Password updated for %q\n", args[0])
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	users, err := a.users.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tROLE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\n", u.Username, u.Role, u.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}
