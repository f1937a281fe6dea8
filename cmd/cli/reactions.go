package main

import (
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/quillhub/backend/internal/reactions"
	"github.com/spf13/cobra"
)

var reactionsCmd = &cobra.Command{
	Use:   "reactions",
	Short: "Show and toggle reactions on posts and comments",
	Long: `Targets are "post <id>" or "comment <id>".

Examples:
  quill reactions show post 12
  quill reactions toggle comment 40 laugh
  quill reactions users post 12 --type love`,
}

var reactionsShowCmd = &cobra.Command{
	Use:   "show <post|comment> <id>",
	Short: "Show reaction counts and your own reaction",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, id, err := parseTarget(args)
		if err != nil {
			return err
		}
		c, err := clientFromConfig(false)
		if err != nil {
			return err
		}

		var summary reactions.Summary
		if err := check(c.R().SetResult(&summary).Get(reactionsPath(kind, id))); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput() {
			return printJSON(out, summary)
		}
		printCounts(cmd, summary.Counts)
		if summary.UserReaction != nil {
			info.Fprintf(out, "you reacted with %s\n", *summary.UserReaction)
		}
		return nil
	},
}

var reactionsToggleCmd = &cobra.Command{
	Use:   "toggle <post|comment> <id> <type>",
	Short: "Toggle a reaction: add it, switch to it, or remove it if already set",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, id, err := parseTarget(args[:2])
		if err != nil {
			return err
		}
		if !reactions.ValidType(kind, args[2]) {
			return fmt.Errorf("%q is not a %s reaction (valid: %v)", args[2], kind, reactions.Types(kind))
		}
		c, err := clientFromConfig(true)
		if err != nil {
			return err
		}

		res, err := toggleReaction(c, kind, id, args[2])
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(cmd.OutOrStdout(), res)
		}
		printSuccess(cmd.OutOrStdout(), "Reaction %s", res.Outcome)
		printCounts(cmd, res.Reactions)
		return nil
	},
}

var reactionsRemoveCmd = &cobra.Command{
	Use:   "remove <post|comment> <id>",
	Short: "Remove your reaction",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, id, err := parseTarget(args)
		if err != nil {
			return err
		}
		c, err := clientFromConfig(true)
		if err != nil {
			return err
		}
		if err := check(c.R().Delete(reactionsPath(kind, id))); err != nil {
			return err
		}
		printSuccess(cmd.OutOrStdout(), "Reaction removed")
		return nil
	},
}

var reactionsUsersCmd = &cobra.Command{
	Use:   "users <post|comment> <id>",
	Short: "List who reacted",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, id, err := parseTarget(args)
		if err != nil {
			return err
		}
		c, err := clientFromConfig(false)
		if err != nil {
			return err
		}
		reactionType, _ := cmd.Flags().GetString("type")

		var res struct {
			Users []struct {
				UserID   uint   `json:"user_id"`
				Username string `json:"username"`
				Type     string `json:"type"`
			} `json:"users"`
			Count int `json:"count"`
		}
		req := c.R().SetResult(&res)
		if reactionType != "" {
			req.SetQueryParam("type", reactionType)
		}
		if err := check(req.Get(reactionsPath(kind, id) + "/users")); err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(cmd.OutOrStdout(), res)
		}

		rows := make([][]string, 0, len(res.Users))
		for _, u := range res.Users {
			rows = append(rows, []string{strconv.FormatUint(uint64(u.UserID), 10), u.Username, u.Type})
		}
		printTable(cmd.OutOrStdout(), []string{"ID", "USER", "REACTION"}, rows)
		return nil
	},
}

func init() {
	reactionsCmd.AddCommand(reactionsShowCmd, reactionsToggleCmd, reactionsRemoveCmd, reactionsUsersCmd)
	reactionsUsersCmd.Flags().String("type", "", "Only reactors of this type")
}

type toggleResult struct {
	Outcome   reactions.Outcome     `json:"outcome"`
	State     reactions.State       `json:"state"`
	Reactions []reactions.TypeCount `json:"reactions"`
}

func toggleReaction(c *resty.Client, kind reactions.Kind, id, reactionType string) (*toggleResult, error) {
	var res toggleResult
	err := check(c.R().
		SetBody(map[string]string{"reaction": reactionType}).
		SetResult(&res).
		Post(reactionsPath(kind, id)))
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func parseTarget(args []string) (reactions.Kind, string, error) {
	kind, err := reactions.ParseKind(args[0])
	if err != nil {
		return "", "", fmt.Errorf("target must be post or comment, got %q", args[0])
	}
	id, err := parseID(args[1])
	if err != nil {
		return "", "", err
	}
	return kind, id, nil
}

func reactionsPath(kind reactions.Kind, id string) string {
	return fmt.Sprintf("/api/v1/%ss/reactions/%s", kind, id)
}

func printCounts(cmd *cobra.Command, counts []reactions.TypeCount) {
	rows := make([][]string, 0, len(counts))
	for _, tc := range counts {
		rows = append(rows, []string{tc.Type, strconv.FormatInt(tc.Count, 10)})
	}
	printTable(cmd.OutOrStdout(), []string{"REACTION", "COUNT"}, rows)
}
