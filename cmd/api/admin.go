package main

import (
	"context"
	"fmt"
	"time"

	"cashloan-backend/internal/adapter/gateway/mpesa"
	"cashloan-backend/internal/adapter/middleware"
	"cashloan-backend/internal/adapter/repository/mysql"
	"cashloan-backend/internal/domain/user"
	"cashloan-backend/internal/infrastructure/db"
	"cashloan-backend/pkg/id"

	"github.com/spf13/cobra"
)

// tokenCmd prints a bearer token for an existing user id.
func tokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !id.Valid(userID) {
				return fmt.Errorf("--user must be a 32-char lowercase hex id")
			}
			tok, err := middleware.IssueToken([]byte(cfg.JWTSecret), userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (sub claim)")
	cmd.Flags().StringVar(&role, "role", string(user.RoleUser), "role claim: user or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func userCmd() *cobra.Command {
	root := &cobra.Command{Use: "user", Short: "Manage users"}

	var name, phone, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an active user with default loan limits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			msisdn, err := mpesa.NormalizePhone(phone)
			if err != nil {
				return fmt.Errorf("--phone: %w", err)
			}
			r := user.Role(role)
			if r != user.RoleUser && r != user.RoleAdmin {
				return fmt.Errorf("--role must be user or admin")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gdb, err := db.OpenGorm(cfg.MySQLDSN(), db.DefaultOptions())
			if err != nil {
				return err
			}
			if sqlDB, err := gdb.DB(); err == nil {
				defer sqlDB.Close()
			}

			u := &user.User{
				UserID:       id.NewID32(),
				FullName:     name,
				MobileNumber: msisdn,
				Role:         r,
				IsActive:     true,
				LoanLimits:   user.DefaultLoanLimits(),
			}
			if err := mysql.NewUserRepository(gdb).Create(context.Background(), u); err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), u.UserID)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "full name")
	create.Flags().StringVar(&phone, "phone", "", "mobile number, e.g. 0712345678")
	create.Flags().StringVar(&role, "role", string(user.RoleUser), "user or admin")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("phone")

	root.AddCommand(create)
	return root
}
