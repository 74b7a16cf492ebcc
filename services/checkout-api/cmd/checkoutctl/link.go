package main

import (
	"fmt"

	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/repositories"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/utils"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/services/checkout-api/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func linkCmd(logger *zap.Logger) *cobra.Command {
	var (
		handle          string
		checkoutBaseURL string
		qrBaseURL       string
		returnBaseURL   string
		signingKey      string
	)
	cmd := &cobra.Command{
		Use:   "link [order-reference]",
		Short: "Print the checkout and QR URLs of a stored order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := services.LinkOptions{
				CheckoutBaseURL: checkoutBaseURL,
				QRCodeBaseURL:   qrBaseURL,
				ReturnBaseURL:   returnBaseURL,
			}
			if signingKey != "" {
				key, err := utils.DecodeKey(signingKey)
				if err != nil {
					return err
				}
				opts.SigningKey = key
			}

			ctx := cmd.Context()
			db, disconnect, err := openDB(ctx, cmd, logger)
			if err != nil {
				return err
			}
			defer disconnect()

			order, err := repositories.NewOrderRepository().FindByReference(ctx, db, args[0])
			if err != nil {
				return err
			}
			link, err := services.BuildCheckoutLink(order, handle, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checkout: %s\n", link.CheckoutURL)
			if link.QRCodeURL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "qr:       %s\n", link.QRCodeURL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&handle, "handle", "", "merchant handle")
	cmd.Flags().StringVar(&checkoutBaseURL, "checkout-base-url", "https://checkout.infinitepay.io", "hosted checkout base URL")
	cmd.Flags().StringVar(&qrBaseURL, "qr-base-url", "https://chart.googleapis.com/chart?cht=qr&chs=300x300", "QR rendering base URL, empty to skip")
	cmd.Flags().StringVar(&returnBaseURL, "return-base-url", "http://localhost:8080", "public base URL of the checkout-api")
	cmd.Flags().StringVar(&signingKey, "signing-key", "", "base64 return signing key")
	_ = cmd.MarkFlagRequired("handle")
	return cmd
}
