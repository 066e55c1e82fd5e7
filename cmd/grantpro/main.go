package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"chatmatch/internal/infra"
	"chatmatch/internal/sqlinline"
)

// grantpro is an operator tool: it grants or revokes a pro subscription
// directly in the database, bypassing the payment providers.
func main() {
	var (
		idFlag       string
		telegramFlag string
		monthsFlag   int
		revokeFlag   bool
	)

	flag.StringVar(&idFlag, "id", "", "user ID to update (UUID)")
	flag.StringVar(&telegramFlag, "telegram-id", "", "telegram ID to update")
	flag.IntVar(&monthsFlag, "months", 1, "subscription length in months")
	flag.BoolVar(&revokeFlag, "revoke", false, "revoke the subscription instead of granting it")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	telegramID := strings.TrimSpace(telegramFlag)

	if userID == "" && telegramID == "" {
		exitWithError(errors.New("either -id or -telegram-id must be provided"))
	}
	if !revokeFlag && monthsFlag < 1 {
		exitWithError(errors.New("-months must be at least 1"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "grantpro").Logger()
	runner := infra.NewSQLRunner(pool, logger)

	lookupCtx, cancelLookup := context.WithTimeout(context.Background(), 5*time.Second)
	query := sqlinline.QSelectUserByID
	arg := userID
	if userID == "" {
		query = sqlinline.QSelectUserByTelegramID
		arg = telegramID
	}
	var (
		id, tgID, username, firstName, lastName, photoURL string
		subType                                           string
		subActive                                         bool
		subExpiresAt                                      *time.Time
		stripeCustomerID                                  string
		daily, monthly                                    int
		lastResetAt, createdAt, updatedAt                 time.Time
	)
	row := runner.QueryRow(lookupCtx, query, arg)
	err = row.Scan(&id, &tgID, &username, &firstName, &lastName, &photoURL,
		&subType, &subActive, &subExpiresAt, &stripeCustomerID,
		&daily, &monthly, &lastResetAt, &createdAt, &updatedAt)
	cancelLookup()
	if err != nil {
		exitWithError(fmt.Errorf("failed to load user: %w", err))
	}

	updateCtx, cancelUpdate := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelUpdate()

	if revokeFlag {
		_, err = runner.Exec(updateCtx, sqlinline.QSetSubscription, id, "free", false, nil)
		if err != nil {
			exitWithError(fmt.Errorf("failed to revoke subscription: %w", err))
		}
		fmt.Printf("User %s (telegram %s): subscription revoked\n", id, tgID)
		return
	}

	expiresAt := time.Now().AddDate(0, monthsFlag, 0)
	_, err = runner.Exec(updateCtx, sqlinline.QSetSubscription, id, "pro", true, expiresAt)
	if err != nil {
		exitWithError(fmt.Errorf("failed to grant subscription: %w", err))
	}
	fmt.Printf("User %s (telegram %s): pro until %s\n", id, tgID, expiresAt.Format(time.RFC3339))
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
