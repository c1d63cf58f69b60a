/*
Copyright 2025 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jerry-enebeli/vanta"
	"github.com/jerry-enebeli/vanta/chain"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// linkCommands groups the sender-local link operations. These run against the
// local ledger and the configured wallet key file without an API server.
func linkCommands(v *vantaInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "manage transfer links",
	}

	cmd.AddCommand(createLinkCommand(v))
	cmd.AddCommand(claimLinkCommand(v))
	cmd.AddCommand(refundLinkCommand(v))
	cmd.AddCommand(retryLinkCommand(v))
	cmd.AddCommand(listLinksCommand(v))
	cmd.AddCommand(exportLinksCommand(v))
	cmd.AddCommand(importLinksCommand(v))

	return cmd
}

func walletSigner(v *vantaInstance) chain.Signer {
	signer, err := chain.NewFileSigner(v.cnf.Wallet.KeyFile)
	if err != nil {
		log.Fatalf("error loading wallet key: %v", err)
	}
	return signer
}

func printJSON(value interface{}) {
	data, err := json.MarshalIndent(value, "", "    ")
	if err != nil {
		log.Fatalf("error printing result: %v", err)
	}
	fmt.Println(string(data))
}

func createLinkCommand(v *vantaInstance) *cobra.Command {
	var symbol string
	var amount string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "fund a new transfer link from the configured wallet",
		Run: func(cmd *cobra.Command, args []string) {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				log.Fatalf("invalid amount %q: %v", amount, err)
			}
			signer := walletSigner(v)
			created, err := v.vanta.CreateLink(context.Background(), vanta.CreateLinkRequest{
				Sender: signer.Address(),
				Symbol: symbol,
				Amount: value,
			}, signer)
			if err != nil {
				log.Fatal(err)
			}
			printJSON(created)
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "SOL", "asset symbol to send")
	cmd.Flags().StringVar(&amount, "amount", "", "amount in display units")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func claimLinkCommand(v *vantaInstance) *cobra.Command {
	var secret string
	var recipient string
	var symbol string

	cmd := &cobra.Command{
		Use:   "claim",
		Short: "claim a link with its secret",
		Run: func(cmd *cobra.Command, args []string) {
			result, err := v.vanta.ClaimLink(context.Background(), vanta.ClaimRequest{
				Secret:    secret,
				Recipient: recipient,
				Symbol:    symbol,
			})
			if err != nil {
				log.Fatal(err)
			}
			printJSON(result)
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "link secret from the share URL fragment")
	cmd.Flags().StringVar(&recipient, "recipient", "", "address to receive the funds")
	cmd.Flags().StringVar(&symbol, "symbol", "SOL", "asset symbol held by the link")
	_ = cmd.MarkFlagRequired("secret")
	_ = cmd.MarkFlagRequired("recipient")

	return cmd
}

func refundLinkCommand(v *vantaInstance) *cobra.Command {
	var destination string

	cmd := &cobra.Command{
		Use:   "refund [link-id]",
		Short: "return an unclaimed link's funds to an address you control",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dest := destination
			if dest == "" {
				dest = walletSigner(v).Address()
			}
			link, err := v.vanta.RefundLink(context.Background(), args[0], dest)
			if err != nil {
				log.Fatal(err)
			}
			printJSON(link)
		},
	}
	cmd.Flags().StringVar(&destination, "to", "", "refund destination, defaults to the configured wallet")

	return cmd
}

func retryLinkCommand(v *vantaInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry [link-id]",
		Short: "retry gas funding for a partially funded link",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			link, err := v.vanta.RetryGasFunding(context.Background(), args[0], walletSigner(v))
			if err != nil {
				log.Fatal(err)
			}
			printJSON(link)
		},
	}

	return cmd
}

func listLinksCommand(v *vantaInstance) *cobra.Command {
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "list links in the local ledger",
		Run: func(cmd *cobra.Command, args []string) {
			links, err := v.vanta.ListLinks(context.Background(), limit, offset)
			if err != nil {
				log.Fatal(err)
			}
			printJSON(links)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of links to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of links to skip")

	return cmd
}

func exportLinksCommand(v *vantaInstance) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "export the link ledger, secrets included",
		Run: func(cmd *cobra.Command, args []string) {
			document, err := v.vanta.ExportLinks(context.Background())
			if err != nil {
				log.Fatal(err)
			}
			data, err := json.MarshalIndent(document, "", "    ")
			if err != nil {
				log.Fatal(err)
			}
			if out == "" {
				fmt.Println(string(data))
				return
			}
			// Export documents hold live custody secrets.
			if err := os.WriteFile(out, data, 0600); err != nil {
				log.Fatal(err)
			}
			fmt.Printf("exported %d links to %s\n", len(document.Links), out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the export to a file instead of stdout")

	return cmd
}

func importLinksCommand(v *vantaInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "import links from an export document",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			data, err := os.ReadFile(args[0])
			if err != nil {
				log.Fatal(err)
			}
			count, err := v.vanta.ImportLinks(context.Background(), data)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("imported %d links\n", count)
		},
	}

	return cmd
}
