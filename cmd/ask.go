package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docchat/internal/render"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the indexed documents",
	Long: `Answers the question from the indexed PDFs, falling back to the model's
general knowledge when the documents are insufficient. The exchange is logged
under the given user's history.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("user", "", "username the question is logged under (default: the admin user)")
	askCmd.Flags().Bool("html", false, "print the rendered HTML instead of markdown")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	username, _ := cmd.Flags().GetString("user")
	asHTML, _ := cmd.Flags().GetBool("html")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if username == "" {
		username = a.cfg.Auth.AdminUsername
	}
	user, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("looking up user %q: %w", username, err)
	}

	questions, err := a.questionService()
	if err != nil {
		return err
	}

	reply, err := questions.Ask(ctx, user.ID, args[0], nil)
	if err != nil {
		return err
	}

	if asHTML {
		fmt.Println(render.MustHTML(reply.Response))
	} else {
		fmt.Println(reply.Response)
	}
	fmt.Printf("\nSource: %s\n", reply.Source)
	for _, s := range reply.Sources {
		fmt.Printf("  - %s (page %d)\n", s.Filename, s.Page)
	}
	return nil
}
