package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/csrental/cees/internal/config"
	"github.com/csrental/cees/internal/domain"
	"github.com/csrental/cees/internal/repository"
	"github.com/csrental/cees/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func SessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage user sessions",
		Long:  "Create and revoke session tokens for users",
	}

	cmd.AddCommand(SessionCreateCmd())
	cmd.AddCommand(SessionRevokeCmd())

	return cmd
}

func SessionCreateCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session token for a user",
		Long:  "Create a session token for a user. The token is printed once and cannot be recovered.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runSessionCreate(outputFormat, userID, role, ttl)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().StringVar(&userID, "user", "", "User ID to mint the session for (required)")
	cmd.Flags().StringVar(&role, "role", "USER", "Role for the session (USER or ADMIN)")
	cmd.Flags().DurationVar(&ttl, "ttl", service.DefaultSessionTTL, "Session lifetime")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runSessionCreate(outputFormat, userID, roleStr string, ttl time.Duration) error {
	ctx := context.Background()

	role := domain.Role(roleStr)
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return fmt.Errorf("invalid role %q: must be USER or ADMIN", roleStr)
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	sessionRepo := repository.NewUserSessionRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(sessionRepo, uuidGen)

	token, err := authSvc.CreateSession(ctx, userID, role, ttl)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"user_id":    userID,
			"role":       string(role),
			"token":      token,
			"expires_at": time.Now().UTC().Add(ttl),
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Session created for user %s (%s)\n", userID, role)
		fmt.Printf("Token: %s\n", token)
		fmt.Println("Store this token securely. It will not be shown again.")
	}

	return nil
}

func SessionRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <session-id>",
		Short: "Revoke a session",
		Long:  "Revoke a session by its ID, invalidating the token immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionRevoke,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runSessionRevoke(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	sessionID := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	sessionRepo := repository.NewUserSessionRepository(pool)
	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(sessionRepo, uuidGen)

	if err := authSvc.RevokeSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"session_id": sessionID,
			"revoked":    true,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Session revoked: %s\n", sessionID)
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
