package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/quillhub/backend/internal/models"
	"github.com/spf13/cobra"
)

type notificationList struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"n"},
	Short:   "List and manage your notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromConfig(true)
		if err != nil {
			return err
		}
		unread, _ := cmd.Flags().GetBool("unread")
		limit, _ := cmd.Flags().GetInt("limit")

		list, err := listNotifications(c, unread, limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput() {
			return printJSON(out, list)
		}

		rows := make([][]string, 0, len(list.Notifications))
		for _, n := range list.Notifications {
			mark := " "
			if !n.Read {
				mark = "•"
			}
			rows = append(rows, []string{
				mark,
				strconv.FormatUint(uint64(n.ID), 10),
				n.Type,
				n.Message,
				n.CreatedAt.Local().Format(time.DateTime),
			})
		}
		printTable(out, []string{"", "ID", "TYPE", "MESSAGE", "WHEN"}, rows)
		info.Fprintf(out, "%d unread\n", list.Unread)
		return nil
	},
}

var notificationsCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Show the unread notification count",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromConfig(true)
		if err != nil {
			return err
		}
		var res struct {
			Count int64 `json:"count"`
		}
		if err := check(c.R().SetResult(&res).Get("/api/v1/notifications/unread-count")); err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Count)
		return nil
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read [id]",
	Short: "Mark one notification, or all of them, as read",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromConfig(true)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			var res struct {
				Updated int64 `json:"updated"`
			}
			if err := check(c.R().SetResult(&res).Patch("/api/v1/notifications/read-all")); err != nil {
				return err
			}
			printSuccess(out, "Marked %d notifications as read", res.Updated)
			return nil
		}

		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := check(c.R().SetPathParam("id", id).Patch("/api/v1/notifications/{id}/read")); err != nil {
			return err
		}
		printSuccess(out, "Notification %s marked as read", id)
		return nil
	},
}

var notificationsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete one notification, or all of them with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := clientFromConfig(true)
		if err != nil {
			return err
		}
		all, _ := cmd.Flags().GetBool("all")
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			if !all {
				return fmt.Errorf("pass a notification id or --all")
			}
			var res struct {
				Deleted int64 `json:"deleted"`
			}
			if err := check(c.R().SetResult(&res).Delete("/api/v1/notifications")); err != nil {
				return err
			}
			printSuccess(out, "Deleted %d notifications", res.Deleted)
			return nil
		}

		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := check(c.R().SetPathParam("id", id).Delete("/api/v1/notifications/{id}")); err != nil {
			return err
		}
		printSuccess(out, "Notification %s deleted", id)
		return nil
	},
}

func init() {
	notificationsCmd.AddCommand(notificationsListCmd, notificationsCountCmd, notificationsReadCmd, notificationsDeleteCmd)

	notificationsListCmd.Flags().Bool("unread", false, "Only unread notifications")
	notificationsListCmd.Flags().IntP("limit", "l", 20, "Maximum number of notifications")
	notificationsDeleteCmd.Flags().Bool("all", false, "Delete every notification")
}

func listNotifications(c *resty.Client, unread bool, limit int) (*notificationList, error) {
	var list notificationList
	req := c.R().
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&list)
	if unread {
		req.SetQueryParam("unread", "true")
	}
	if err := check(req.Get("/api/v1/notifications")); err != nil {
		return nil, err
	}
	return &list, nil
}

func parseID(s string) (string, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return "", fmt.Errorf("invalid id %q", s)
	}
	return strconv.FormatUint(id, 10), nil
}
