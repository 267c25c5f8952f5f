package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	authmodels "unearthify/internal/auth/models"
	jwttoken "unearthify/internal/jwt_token"
	id "unearthify/pkg/domain"
)

type tokenOutput struct {
	Token     string    `json:"token"`
	JTI       string    `json:"jti"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

type tokenOptions struct {
	userID string
	email  string
	role   string
	ttl    time.Duration
	json   bool
}

// newTokenCmd mints a bearer token with the configured signing key. The user
// does not need to exist; it is meant for local testing against a dev server.
func newTokenCmd() *cobra.Command {
	opts := tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate a bearer token for local testing",
		Long: `Generate a bearer token signed with the configured JWT key.

The token is rejected in production because the signing key differs.

Examples:
  server token --role admin
  server token --email curator@example.com --ttl 15m --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("token generation is disabled in production")
			}
			ttl := opts.ttl
			if ttl <= 0 {
				ttl = cfg.TokenTTL.Duration
			}
			svc := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, ttl)
			return generateToken(cmd, svc, opts)
		},
	}
	cmd.Flags().StringVar(&opts.userID, "user-id", "", "user ID (UUID); generated when empty")
	cmd.Flags().StringVar(&opts.email, "email", "dev@unearthify.local", "email claim")
	cmd.Flags().StringVar(&opts.role, "role", string(authmodels.RoleEditor), "role claim (admin or editor)")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 0, "token lifetime; defaults to the configured token_ttl")
	cmd.Flags().BoolVar(&opts.json, "json", false, "output as JSON")
	return cmd
}

func generateToken(cmd *cobra.Command, svc *jwttoken.JWTService, opts tokenOptions) error {
	if !authmodels.Role(opts.role).IsValid() {
		return fmt.Errorf("unknown role %q", opts.role)
	}
	userID := id.NewUserID()
	if opts.userID != "" {
		parsed, err := id.ParseUserID(opts.userID)
		if err != nil {
			return err
		}
		userID = parsed
	}

	token, jti, expiresAt, err := svc.GenerateAccessToken(cmd.Context(), jwttoken.Principal{
		UserID: userID,
		Email:  opts.email,
		Role:   opts.role,
	})
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	out := tokenOutput{
		Token:     token,
		JTI:       jti,
		UserID:    userID.String(),
		Email:     opts.email,
		Role:      opts.role,
		ExpiresAt: expiresAt,
	}
	if opts.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printToken(cmd.OutOrStdout(), out)
	return nil
}

func printToken(w io.Writer, out tokenOutput) {
	fmt.Fprintln(w, "Access Token (JWT)")
	fmt.Fprintln(w, "==================")
	fmt.Fprintf(w, "User ID:     %s\n", out.UserID)
	fmt.Fprintf(w, "Email:       %s\n", out.Email)
	fmt.Fprintf(w, "Role:        %s\n", out.Role)
	fmt.Fprintf(w, "JTI:         %s\n", out.JTI)
	fmt.Fprintf(w, "Expires At:  %s\n", out.ExpiresAt.Format(time.RFC3339))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Token:")
	fmt.Fprintln(w, out.Token)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, `  curl -H "Authorization: Bearer <token>" http://localhost:8080/api/dashboard`)
}
