package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/tillclose/internal/adapter/http/dto"
	"github.com/iho/tillclose/internal/adapter/render"
	"github.com/iho/tillclose/internal/domain"
	"github.com/iho/tillclose/internal/infrastructure/auth"
	"github.com/iho/tillclose/internal/infrastructure/denominations"
)

// print writes raw JSON when --json is set, otherwise the rendered view.
func (a *app) print(w io.Writer, raw []byte, view func() string) error {
	if a.v.GetBool(keyJSON) {
		_, err := fmt.Fprintln(w, string(raw))
		return err
	}
	_, err := fmt.Fprintln(w, view())
	return err
}

func (a *app) settlementCommand(cmd *cobra.Command, method, path string, in any) error {
	var st dto.SettlementResponse
	raw, err := a.do(cmd.Context(), method, path, in, &st)
	if err != nil {
		return err
	}
	return a.print(cmd.OutOrStdout(), raw, func() string { return render.Settlement(st) })
}

func newBeginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "begin <session-id>",
		Short: "Open the settlement of a closed shift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.settlementCommand(cmd, http.MethodPost, "/api/v1/settlements",
				dto.BeginSettlementRequest{SessionID: args[0]})
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a settlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.settlementCommand(cmd, http.MethodGet, settlementPath(args[0]), nil)
		},
	}
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count <session-id> <label> <quantity>",
		Short: "Record the counted quantity of one denomination",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[2])
			if err != nil || n < 0 {
				return fmt.Errorf("quantity must be a non-negative integer, got %q", args[2])
			}
			return a.settlementCommand(cmd, http.MethodPut, settlementPath(args[0], "denominations", args[1]),
				dto.UpdateDenominationRequest{Count: n})
		},
	}
}

func newNotesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notes <session-id> <text>",
		Short: "Replace the operator notes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.settlementCommand(cmd, http.MethodPatch, settlementPath(args[0]),
				dto.UpdateNotesRequest{Notes: args[1]})
		},
	}
}

func newAdjustCmd(a *app) *cobra.Command {
	adjustCmd := &cobra.Command{
		Use:   "adjust",
		Short: "Manage manual cash adjustments",
	}

	var reason string
	addCmd := &cobra.Command{
		Use:   "add <session-id> <add|subtract> <amount>",
		Short: "Record an adjustment",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[2], err)
			}
			return a.settlementCommand(cmd, http.MethodPost, settlementPath(args[0], "adjustments"),
				dto.AddAdjustmentRequest{Type: args[1], Amount: amount, Reason: reason})
		},
	}
	addCmd.Flags().StringVar(&reason, "reason", "", "Why the adjustment was made")
	_ = addCmd.MarkFlagRequired("reason")

	removeCmd := &cobra.Command{
		Use:   "remove <session-id> <adjustment-id>",
		Short: "Remove an adjustment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.settlementCommand(cmd, http.MethodDelete, settlementPath(args[0], "adjustments", args[1]), nil)
		},
	}

	adjustCmd.AddCommand(addCmd, removeCmd)
	return adjustCmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show the status cards of a settlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var status dto.StatusResponse
			raw, err := a.do(cmd.Context(), http.MethodGet, settlementPath(args[0], "status"), nil, &status)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), raw, func() string { return render.StatusCards(status) })
		},
	}
}

func newTendersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tenders <session-id>",
		Short: "Show the tender breakdown of a shift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tenders dto.TenderSummaryResponse
			raw, err := a.do(cmd.Context(), http.MethodGet, settlementPath(args[0], "tenders"), nil, &tenders)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), raw, func() string { return render.Tenders(tenders) })
		},
	}
}

func newCompleteCmd(a *app) *cobra.Command {
	var (
		notes          string
		idempotencyKey string
	)

	cmd := &cobra.Command{
		Use:   "complete <session-id>",
		Short: "Finalize a settlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req dto.CompleteSettlementRequest
			if cmd.Flags().Changed("notes") {
				req.Notes = &notes
			}

			var st dto.SettlementResponse
			raw, err := a.send(cmd.Context(), http.MethodPost, settlementPath(args[0], "complete"), idempotencyKey, req, &st)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), raw, func() string { return render.Settlement(st) })
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Replace the operator notes before completing")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Key that makes a retried completion safe")

	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List completed settlements, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := fmt.Sprintf("/api/v1/settlements?limit=%d&offset=%d", limit, offset)
			var list dto.ListSettlementsResponse
			raw, err := a.do(cmd.Context(), http.MethodGet, path, nil, &list)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), raw, func() string { return render.History(list) })
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of settlements")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of settlements to skip")

	return cmd
}

func newDenominationsCmd(a *app) *cobra.Command {
	var asTOML bool

	cmd := &cobra.Command{
		Use:   "denominations",
		Short: "List the configured denominations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var denoms []dto.DenominationResponse
			raw, err := a.do(cmd.Context(), http.MethodGet, "/api/v1/denominations", nil, &denoms)
			if err != nil {
				return err
			}

			if asTOML {
				data, err := denominationsFile(denoms)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			return a.print(cmd.OutOrStdout(), raw, func() string {
				var b strings.Builder
				for _, d := range denoms {
					fmt.Fprintf(&b, "%-8s %s\n", d.Label, d.FaceValue.StringFixed(2))
				}
				return strings.TrimRight(b.String(), "\n")
			})
		},
	}
	cmd.Flags().BoolVar(&asTOML, "toml", false, "Print the set as a denominations file for DENOMINATIONS_FILE")

	return cmd
}

// denominationsFile re-encodes the served set in the server's file format.
func denominationsFile(denoms []dto.DenominationResponse) ([]byte, error) {
	items := make([]domain.Denomination, len(denoms))
	for i, d := range denoms {
		items[i] = domain.Denomination{Label: d.Label, FaceValue: d.FaceValue}
	}

	set, err := domain.NewDenominationSet(items)
	if err != nil {
		return nil, err
	}
	return denominations.Marshal(set)
}

func newTokenCmd(a *app) *cobra.Command {
	var (
		operatorID string
		name       string
		role       string
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator token signed with the shared secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := a.v.GetString(keyJWTSecret)
			if secret == "" {
				return fmt.Errorf("a signing secret is required (--%s or %s_JWT_SECRET)", "jwt-secret", envPrefix)
			}

			op := &domain.Operator{ID: operatorID, Name: name, Role: domain.Role(role)}
			token, err := auth.NewJWTManager(secret, ttl).Generate(op)
			if err != nil {
				return err
			}

			raw, err := json.Marshal(dto.TokenResponse{Token: token, ExpiresAt: time.Now().Add(ttl).UTC()})
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), raw, func() string { return token })
		},
	}

	cmd.Flags().String("jwt-secret", "", "Shared signing secret of the API")
	_ = a.v.BindPFlag(keyJWTSecret, cmd.Flags().Lookup("jwt-secret"))
	cmd.Flags().StringVar(&operatorID, "operator", "", "Operator id carried in the token")
	cmd.Flags().StringVar(&name, "name", "", "Operator display name")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleCashier), "Operator role: supervisor, cashier or viewer")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("operator")

	return cmd
}
