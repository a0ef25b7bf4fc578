package main

import (
	"bufio"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/raciswarm/raciswarm"
	"github.com/raciswarm/raciswarm/engine"
)

var interactive bool

var askCmd = &cobra.Command{
	Use:   "ask <capability> <request...>",
	Short: "Submit a request to the swarm claiming a capability",
	Long: `Submit a request and print the swarm's final reply.

The capability tag selects the swarm; the remaining arguments form the
request text. With --interactive the conversation stays open and follow-up
replies are read from stdin until EOF or an empty line.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := buildService()
		if err != nil {
			return err
		}

		capability := args[0]
		text := strings.Join(args[1:], " ")

		res, err := svc.SubmitRequest(cmd.Context(), capability, currentUserID(), text)
		if err != nil {
			fmt.Fprintln(os.Stderr, color.RedString(raciswarm.UserFacingMessage(err)))
			return err
		}
		printResult(res)

		if !interactive {
			return svc.Close(res.ConversationID)
		}

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print(color.CyanString("> "))
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				break
			}
			res, err = svc.Reply(cmd.Context(), res.ConversationID, line)
			if err != nil {
				fmt.Fprintln(os.Stderr, color.RedString(raciswarm.UserFacingMessage(err)))
				return err
			}
			printResult(res)
		}
		return svc.Close(res.ConversationID)
	},
}

func init() {
	askCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Keep the conversation open for follow-up replies")
}

func printResult(res engine.Result) {
	if res.Degraded {
		fmt.Printf("%s %s\n", color.YellowString("⚠"), res.Content)
		return
	}
	fmt.Printf("%s %s\n", color.GreenString("✓"), res.Content)
}

func currentUserID() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "user"
}
