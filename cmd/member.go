package cmd

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/spf13/cobra"

	"github.com/s0up4200/hlsub/heyloyalty"
)

var (
	memberName   string
	memberFields []string
	memberOutput string
)

// memberCmd represents the member command
var memberCmd = &cobra.Command{
	Use:   "member <list-id> <email>",
	Short: "Look up a member on a list by email",
	Args:  cobra.ExactArgs(2),
	RunE:  runMember,
}

// subscribeCmd represents the subscribe command
var subscribeCmd = &cobra.Command{
	Use:   "subscribe <list-id> <email>",
	Short: "Subscribe an email to a list or update the existing member",
	Long: `Create the member when the email is not on the list yet, otherwise
update the member's fields.

Fields are given as name=value and may be repeated for multi-choice
fields. An empty value clears the field:

  hlsub subscribe 1234 ann@example.com --name Ann \
    --field categories=3 --field categories=7 --field mobile=`,
	Args: cobra.ExactArgs(2),
	RunE: runSubscribe,
}

func init() {
	rootCmd.AddCommand(memberCmd)
	rootCmd.AddCommand(subscribeCmd)

	memberCmd.Flags().StringVarP(&memberOutput, "output", "o", "yaml", "output format (json, yaml)")

	subscribeCmd.Flags().StringVar(&memberName, "name", "", "first name for new members")
	subscribeCmd.Flags().StringArrayVar(&memberFields, "field", nil, "member field as name=value (repeatable)")
}

func parseMemberArgs(args []string) (int, string, error) {
	listID, err := parseListID(args[0])
	if err != nil {
		return 0, "", err
	}

	addr, err := mail.ParseAddress(args[1])
	if err != nil {
		return 0, "", fmt.Errorf("invalid email %q: %w", args[1], err)
	}

	return listID, addr.Address, nil
}

func runMember(cmd *cobra.Command, args []string) error {
	if memberOutput != "json" && memberOutput != "yaml" {
		return fmt.Errorf("invalid output format: %s (must be json or yaml)", memberOutput)
	}

	listID, email, err := parseMemberArgs(args)
	if err != nil {
		return err
	}

	member, err := hlClient.FindMember(context.Background(), listID, email)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if member == nil {
		fmt.Fprintf(out, "%s is not on list %d.\n", email, listID)
		return nil
	}

	return encode(out, memberOutput, member.AsMap())
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	listID, email, err := parseMemberArgs(args)
	if err != nil {
		return err
	}

	fields, err := heyloyalty.ParseFields(memberFields)
	if err != nil {
		return err
	}

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if dryRun {
		existing, err := hlClient.FindMember(ctx, listID, email)
		if err != nil {
			return err
		}

		if existing == nil {
			fmt.Fprintf(out, "[DRY RUN] Would create %s on list %d with:\n  %s\n",
				email, listID, heyloyalty.CreateFields(email, memberName, fields).Encode())
		} else {
			fmt.Fprintf(out, "[DRY RUN] Would update member %s on list %d with:\n  %s\n",
				existing.ID, listID, fields.Encode())
		}
		return nil
	}

	result, err := service.Subscribe(ctx, email, memberName, listID, fields)
	if err != nil {
		return err
	}

	switch {
	case result.Created:
		fmt.Fprintf(out, "✓ Subscribed %s to list %d (member %s)\n", email, listID, result.Member.ID)
	case result.Member != nil:
		fmt.Fprintf(out, "✓ Updated member %s on list %d\n", result.Member.ID, listID)
	default:
		fmt.Fprintf(out, "✓ Updated %s on list %d\n", email, listID)
	}

	return nil
}
