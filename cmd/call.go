package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/financebot/financebot/internal/store"
	"github.com/financebot/financebot/pkg/pixpoc"
)

var callContactName string

var callCmd = &cobra.Command{
	Use:   "call <phone>",
	Short: "Place an advisory call to a phone number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		phone := args[0]

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Pixpoc == nil {
			return eris.New("pixpoc api key is required to place calls")
		}

		session, err := env.Pixpoc.InitiateCall(cmd.Context(), pixpoc.InitiateCallRequest{
			ToNumber:     phone,
			AgentID:      cfg.Pixpoc.AgentID,
			ContactName:  callContactName,
			FromNumberID: cfg.Pixpoc.FromNumberID,
		})
		if err != nil {
			return eris.Wrap(err, "initiate call")
		}

		normalized := pixpoc.NormalizeE164(phone, cfg.Pixpoc.DefaultCountryCode)
		if err := env.Store.EnsureUser(cmd.Context(), normalized, callContactName); err != nil {
			return err
		}
		if err := env.Store.SaveCall(cmd.Context(), store.SaveCallParams{
			OwnerID:    normalized,
			CallID:     session.CallID,
			ContactID:  session.ContactID,
			TrackingID: session.TrackingID,
			CampaignID: session.CampaignID,
		}); err != nil {
			return err
		}

		zap.L().Info("call placed",
			zap.String("call_id", session.CallID),
			zap.String("tracking_id", session.TrackingID),
			zap.String("status", session.Status),
		)
		fmt.Printf("call %s (%s) placed to %s\n", session.CallID, session.Status, normalized)

		return nil
	},
}

var callDataCmd = &cobra.Command{
	Use:   "data <call-id>",
	Short: "Show details, analysis, and transcript for a call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Pixpoc == nil {
			return eris.New("pixpoc api key is required")
		}

		data, err := env.Pixpoc.FullCallData(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "full call data")
		}

		if data.Call != nil {
			fmt.Printf("call:       %s (%s), duration %.0fs\n", data.Call.ID, data.Call.Status, data.Call.Duration)
		} else {
			fmt.Println("call:       unavailable")
		}
		if data.Analysis != nil {
			fmt.Printf("analysis:   %s, %d memory keys\n", data.Analysis.Status, len(data.Memory))
		} else {
			fmt.Println("analysis:   unavailable")
		}
		if data.Transcript != nil {
			fmt.Printf("transcript:\n%s\n", data.Transcript.Transcript)
		} else {
			fmt.Println("transcript: unavailable")
		}
		return nil
	},
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show calling-platform account credits",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Pixpoc == nil {
			return eris.New("pixpoc api key is required")
		}

		account, err := env.Pixpoc.GetAccountInfo(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "get account info")
		}

		fmt.Printf("account: %s\ncredits: %.2f\nused:    %.2f\n", account.Email, account.Credits, account.Used)
		return nil
	},
}

func init() {
	callCmd.Flags().StringVar(&callContactName, "name", "", "contact name passed to the voice agent")
	callCmd.AddCommand(callDataCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(accountCmd)
}
