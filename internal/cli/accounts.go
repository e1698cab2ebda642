package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/secira/TargetCapital-sub000/internal/account"
	"github.com/secira/TargetCapital-sub000/internal/logger"
	"github.com/secira/TargetCapital-sub000/internal/store/gormstore"
)

// newAccountsCmd creates the accounts command group.
func newAccountsCmd() *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Maintain the local account directory",
		Long:  "Inspect and edit the sqlite directory the pipeline reads subscriptions and broker links from.",
	}

	accountsCmd.AddCommand(newAccountsSeedCmd())
	accountsCmd.AddCommand(newAccountsGrantCmd())
	accountsCmd.AddCommand(newAccountsLinkCmd())
	accountsCmd.AddCommand(newAccountsListCmd())

	return accountsCmd
}

func newAccountsSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed demo subscriptions and broker links",
		Long: `Populate the directory with demo users covering the common pipeline
outcomes: an allowed tier with a connected broker, an expired subscription,
a user without any primary link and one whose primary link is disconnected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			directory := sess.app.Directory()
			if directory == nil {
				return fmt.Errorf("account directory unavailable")
			}
			return seedDemoDirectory(cmd.Context(), directory)
		},
	}
}

func newAccountsGrantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant [USER_ID] [TIER]",
		Short: "Grant or update a user's subscription tier",
		Long: `Upsert the subscription row for a user.
Example: precheck accounts grant u-1001 pro --expires 2027-01-01`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, tier := args[0], args[1]
			var expiresAt time.Time
			if raw, _ := cmd.Flags().GetString("expires"); strings.TrimSpace(raw) != "" {
				parsed, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
				if err != nil {
					return fmt.Errorf("invalid --expires, use YYYY-MM-DD: %w", err)
				}
				expiresAt = parsed
			}

			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			directory := sess.app.Directory()
			if directory == nil {
				return fmt.Errorf("account directory unavailable")
			}
			if err := directory.UpsertSubscription(cmd.Context(), userID, tier, expiresAt); err != nil {
				return fmt.Errorf("写入订阅失败: %w", err)
			}
			if expiresAt.IsZero() {
				fmt.Printf("已授予 %s 订阅等级 %s（长期有效）\n", userID, strings.ToLower(tier))
			} else {
				fmt.Printf("已授予 %s 订阅等级 %s（有效期至 %s）\n", userID, strings.ToLower(tier), expiresAt.Format("2006-01-02"))
			}
			return nil
		},
	}

	cmd.Flags().String("expires", "", "Expiry date YYYY-MM-DD (omit for no expiry)")

	return cmd
}

func newAccountsLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link [USER_ID] [BROKER]",
		Short: "Create or update a broker link",
		Long: `Upsert a broker link for a user. Marking a link primary demotes any
other primary link of the same user.
Example: precheck accounts link u-1001 zerodha --margin 100000 --status connected --primary`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, broker := args[0], args[1]
			status, _ := cmd.Flags().GetString("status")
			primary, _ := cmd.Flags().GetBool("primary")
			margin, _ := cmd.Flags().GetFloat64("margin")
			linkID, _ := cmd.Flags().GetString("id")

			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			directory := sess.app.Directory()
			if directory == nil {
				return fmt.Errorf("account directory unavailable")
			}
			id, err := directory.UpsertBrokerLink(cmd.Context(), gormstore.BrokerLink{
				LinkID:          linkID,
				UserID:          userID,
				Broker:          broker,
				Status:          account.LinkStatus(strings.ToLower(strings.TrimSpace(status))),
				Primary:         primary,
				AvailableMargin: margin,
			})
			if err != nil {
				return fmt.Errorf("写入券商绑定失败: %w", err)
			}
			fmt.Printf("已绑定 %s -> %s（link=%s primary=%t status=%s margin=%.2f）\n",
				userID, strings.ToLower(broker), id, primary, strings.ToLower(status), margin)
			return nil
		},
	}

	cmd.Flags().String("id", "", "Link ID (generated when omitted)")
	cmd.Flags().String("status", string(account.StatusConnected), "Link status: connected, disconnected or pending")
	cmd.Flags().Bool("primary", false, "Mark this link as the user's primary broker")
	cmd.Flags().Float64("margin", 0, "Available margin reported by the broker")

	return cmd
}

func newAccountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [USER_ID]",
		Short: "Show a user's subscription and broker links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]

			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			directory := sess.app.Directory()
			if directory == nil {
				return fmt.Errorf("account directory unavailable")
			}

			sub, err := directory.GetSubscription(cmd.Context(), userID)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				fmt.Printf("用户 %s 无订阅记录（回落基础档）\n", userID)
			case err != nil:
				return fmt.Errorf("查询订阅失败: %w", err)
			case sub.ExpiresAt.IsZero():
				fmt.Printf("用户 %s 订阅等级 %s（长期有效）\n", userID, sub.Tier)
			case sub.Expired(time.Now()):
				fmt.Printf("用户 %s 订阅等级 %s（已于 %s 过期，回落基础档）\n", userID, sub.Tier, sub.ExpiresAt.Format("2006-01-02"))
			default:
				fmt.Printf("用户 %s 订阅等级 %s（有效期至 %s）\n", userID, sub.Tier, sub.ExpiresAt.Format("2006-01-02"))
			}

			links, err := directory.ListBrokerLinks(cmd.Context(), userID)
			if err != nil {
				return fmt.Errorf("查询券商绑定失败: %w", err)
			}
			if len(links) == 0 {
				fmt.Println("无券商绑定")
				return nil
			}
			fmt.Printf("券商绑定 %d 条:\n", len(links))
			for _, link := range links {
				marker := " "
				if link.Primary {
					marker = "*"
				}
				fmt.Printf("  %s %-12s status=%-12s margin=%.2f link=%s\n",
					marker, link.Broker, link.Status, link.AvailableMargin, link.LinkID)
			}
			return nil
		},
	}
}

// seedDemoDirectory 写入覆盖各类管线结局的演示账户。
func seedDemoDirectory(ctx context.Context, directory *gormstore.Store) error {
	type seedUser struct {
		id      string
		tier    string
		expires time.Time
		links   []gormstore.BrokerLink
	}
	yesterday := time.Now().AddDate(0, 0, -1)
	// 固定 LinkID，使重复 seed 幂等更新而非追加重复行。
	users := []seedUser{
		{
			id:   "demo-pro",
			tier: "pro",
			links: []gormstore.BrokerLink{
				{LinkID: "demo-pro-zerodha", Broker: "zerodha", Status: account.StatusConnected, Primary: true, AvailableMargin: 100000},
			},
		},
		{
			id:   "demo-inst",
			tier: "institutional",
			links: []gormstore.BrokerLink{
				{LinkID: "demo-inst-ibkr", Broker: "ibkr", Status: account.StatusConnected, Primary: true, AvailableMargin: 2500000},
				{LinkID: "demo-inst-zerodha", Broker: "zerodha", Status: account.StatusConnected, Primary: false, AvailableMargin: 300000},
			},
		},
		{
			id:      "demo-expired",
			tier:    "pro",
			expires: yesterday,
			links: []gormstore.BrokerLink{
				{LinkID: "demo-expired-zerodha", Broker: "zerodha", Status: account.StatusConnected, Primary: true, AvailableMargin: 50000},
			},
		},
		{
			id:   "demo-nolink",
			tier: "pro",
		},
		{
			id:   "demo-offline",
			tier: "pro",
			links: []gormstore.BrokerLink{
				{LinkID: "demo-offline-upstox", Broker: "upstox", Status: account.StatusDisconnected, Primary: true, AvailableMargin: 80000},
			},
		},
	}

	for _, u := range users {
		if err := directory.UpsertSubscription(ctx, u.id, u.tier, u.expires); err != nil {
			return fmt.Errorf("seed %s subscription: %w", u.id, err)
		}
		for _, link := range u.links {
			link.UserID = u.id
			if _, err := directory.UpsertBrokerLink(ctx, link); err != nil {
				return fmt.Errorf("seed %s broker link %s: %w", u.id, link.Broker, err)
			}
		}
		fmt.Printf("已写入演示账户 %s（tier=%s, 券商绑定 %d 条）\n", u.id, u.tier, len(u.links))
	}
	logger.Infof("演示目录写入完成，共 %d 个账户", len(users))
	return nil
}
