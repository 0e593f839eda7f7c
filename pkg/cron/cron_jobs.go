package cron

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"chainsplit/internal/ledger"
	"chainsplit/pkg/utils"
)

func StartCronJob(db *sql.DB) *cron.Cron {
	c := cron.New()

	// Runs daily at midnight: remind members with negative balances in
	// groups that still have unsettled bills.
	_, err := c.AddFunc("0 0 * * *", func() {
		err := SendReminderEmailsToDebtors(db)
		if err != nil {
			utils.Logger.Errorf("Cron job failed to send reminder emails: %v", err)
		}
	})
	if err != nil {
		utils.Logger.Errorf("Failed to schedule debtor reminder job: %v", err)
	}

	c.Start()
	utils.Logger.Info("Cron jobs started (debtor reminders daily at midnight)")
	return c
}

// -------------------------------------------------------------
// Send daily reminders to debtors (email sends run concurrently)
// -------------------------------------------------------------
func SendReminderEmailsToDebtors(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT
			u.email,
			u.first_name,
			g.name AS group_name,
			b.balance
		FROM balances b
		JOIN groups g ON b.group_id = g.id
		JOIN users u ON u.wallet_address = b.address
		WHERE b.balance < 0
		  AND EXISTS (
			SELECT 1 FROM bills bl
			WHERE bl.group_id = b.group_id AND bl.settled = FALSE
		  )
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	symbol := os.Getenv("TOKEN_SYMBOL")
	if symbol == "" {
		symbol = "USDC"
	}

	var wg sync.WaitGroup
	errChan := make(chan error, 10)

	for rows.Next() {
		var (
			email, firstName, groupName string
			balance                     int64
		)

		if err := rows.Scan(&email, &firstName, &groupName, &balance); err != nil {
			utils.Logger.Errorf("Failed to scan debtor row: %v", err)
			continue
		}

		owed := ledger.FormatAmount(-balance)

		wg.Add(1)
		go func(email, firstName, groupName, owed string) {
			defer wg.Done()

			if err := utils.SendDebtorReminderEmail(
				email,
				firstName,
				owed,
				symbol,
				groupName,
			); err != nil {
				errChan <- fmt.Errorf("failed to send reminder email to %s: %v", email, err)
				return
			}

			utils.Logger.Infof("📧 Sent reminder to %s (%s): %s %s owed in '%s'",
				firstName, email, owed, symbol, groupName)
		}(email, firstName, groupName, owed)
	}

	wg.Wait()
	close(errChan)

	for e := range errChan {
		utils.Logger.Error(e)
	}

	if err := rows.Err(); err != nil {
		utils.Logger.Errorf("Error iterating debtor rows: %v", err)
		return err
	}

	utils.Logger.Info("✅ Finished sending all debtor reminder emails.")
	return nil
}
