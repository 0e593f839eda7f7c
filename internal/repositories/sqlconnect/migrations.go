package sqlconnect

import "database/sql"

// Schema bootstrap, run on startup so the tables exist. Ledger amounts are
// BIGINT micro-units (6 decimal places of the settlement currency); no
// floating point anywhere in the books.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		first_name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		username VARCHAR(100) NOT NULL UNIQUE,
		password VARCHAR(255) NOT NULL,
		wallet_address CHAR(42) NOT NULL UNIQUE,
		role VARCHAR(20) NOT NULL DEFAULT 'user',
		inactive_status BOOLEAN NOT NULL DEFAULT FALSE,
		password_changed_at VARCHAR(35) NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS wallets (
		address CHAR(42) PRIMARY KEY,
		user_id BIGINT NULL,
		balance BIGINT NOT NULL DEFAULT 0,
		last_funded_at DATETIME NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		address CHAR(42) NOT NULL,
		transaction_type VARCHAR(10) NOT NULL,
		category VARCHAR(30) NOT NULL,
		amount BIGINT NOT NULL,
		status VARCHAR(20) NOT NULL,
		reference VARCHAR(64) NOT NULL,
		description VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_transactions_address (address)
	)`,
	`CREATE TABLE IF NOT EXISTS registry_config (
		id TINYINT PRIMARY KEY,
		factory VARCHAR(100) NOT NULL,
		updated_by CHAR(42) NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS groups (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		created_by CHAR(42) NOT NULL,
		settlement_counter BIGINT UNSIGNED NOT NULL DEFAULT 0,
		bill_seq BIGINT UNSIGNED NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS group_members (
		group_id BIGINT NOT NULL,
		address CHAR(42) NOT NULL,
		position INT NOT NULL,
		PRIMARY KEY (group_id, address),
		FOREIGN KEY (group_id) REFERENCES groups(id),
		INDEX idx_group_members_address (address)
	)`,
	`CREATE TABLE IF NOT EXISTS balances (
		group_id BIGINT NOT NULL,
		address CHAR(42) NOT NULL,
		balance BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (group_id, address),
		FOREIGN KEY (group_id) REFERENCES groups(id)
	)`,
	`CREATE TABLE IF NOT EXISTS bills (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		group_id BIGINT NOT NULL,
		seq BIGINT UNSIGNED NOT NULL,
		description VARCHAR(255) NOT NULL,
		total_amount BIGINT NOT NULL,
		payer CHAR(42) NOT NULL,
		settled BOOLEAN NOT NULL DEFAULT FALSE,
		settlement_id BIGINT UNSIGNED NULL,
		created_at BIGINT NOT NULL,
		UNIQUE KEY uq_bills_group_seq (group_id, seq),
		FOREIGN KEY (group_id) REFERENCES groups(id)
	)`,
	`CREATE TABLE IF NOT EXISTS bill_shares (
		bill_id BIGINT NOT NULL,
		participant CHAR(42) NOT NULL,
		amount BIGINT NOT NULL,
		position INT NOT NULL,
		PRIMARY KEY (bill_id, participant),
		FOREIGN KEY (bill_id) REFERENCES bills(id)
	)`,
	`CREATE TABLE IF NOT EXISTS settlements (
		group_id BIGINT PRIMARY KEY,
		phase VARCHAR(16) NOT NULL,
		created_by CHAR(42) NOT NULL,
		created_at BIGINT NOT NULL,
		FOREIGN KEY (group_id) REFERENCES groups(id)
	)`,
	`CREATE TABLE IF NOT EXISTS settlement_parties (
		group_id BIGINT NOT NULL,
		member CHAR(42) NOT NULL,
		role ENUM('creditor','debtor') NOT NULL,
		amount BIGINT NOT NULL,
		approved BOOLEAN NOT NULL DEFAULT FALSE,
		funded BOOLEAN NOT NULL DEFAULT FALSE,
		position INT NOT NULL,
		PRIMARY KEY (group_id, member),
		FOREIGN KEY (group_id) REFERENCES settlements(group_id)
	)`,
	`CREATE TABLE IF NOT EXISTS settlement_bills (
		group_id BIGINT NOT NULL,
		bill_seq BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (group_id, bill_seq),
		FOREIGN KEY (group_id) REFERENCES settlements(group_id)
	)`,
	`CREATE TABLE IF NOT EXISTS gambles (
		group_id BIGINT PRIMARY KEY,
		proposer CHAR(42) NOT NULL,
		required_votes INT NOT NULL,
		created_at BIGINT NOT NULL,
		FOREIGN KEY (group_id) REFERENCES groups(id)
	)`,
	`CREATE TABLE IF NOT EXISTS gamble_votes (
		group_id BIGINT NOT NULL,
		voter CHAR(42) NOT NULL,
		position INT NOT NULL,
		PRIMARY KEY (group_id, voter),
		FOREIGN KEY (group_id) REFERENCES gambles(group_id)
	)`,
}

func runMigrations(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
