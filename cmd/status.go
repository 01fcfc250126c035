package cmd

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/spf13/cobra"

	"github.com/s0up4200/hlsub/subscription"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status <email>",
	Short: "Show which configured lists an email is subscribed to",
	Long: `Look the email up on every list under subscription.lists in the
config file and show the member's selected categories.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr, err := mail.ParseAddress(args[0])
	if err != nil {
		return fmt.Errorf("invalid email %q: %w", args[0], err)
	}

	if len(cfg.Subscription.Lists) == 0 {
		return fmt.Errorf("no lists configured. Please set subscription.lists in config")
	}

	refs := make([]subscription.ListRef, 0, len(cfg.Subscription.Lists))
	for _, l := range cfg.Subscription.Lists {
		refs = append(refs, subscription.ListRef{
			ID:            l.ID,
			Label:         l.Label,
			CategoryField: l.CategoryField,
		})
	}

	items, err := service.Status(context.Background(), addr.Address, refs)
	if err != nil {
		return err
	}

	fmt.Print(subscription.NewConsoleFormatter().FormatStatus(addr.Address, items))
	return nil
}
