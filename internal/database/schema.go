package database

// Statements stick to the subset of SQL shared by MySQL and SQLite.
var tables = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
    id VARCHAR(64) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL DEFAULT '',
    auth_provider VARCHAR(32) NOT NULL DEFAULT 'email',
    plan_type VARCHAR(32) NOT NULL,
    credits BIGINT NOT NULL DEFAULT 0,
    credits_unlimited INT NOT NULL DEFAULT 0,
    free_reset_date DATETIME NOT NULL,
    plan_purchase_date DATETIME NULL,
    plan_expiry_date DATETIME NULL,
    is_admin INT NOT NULL DEFAULT 0,
    is_banned INT NOT NULL DEFAULT 0,
    chatbot_msg_count INT NOT NULL DEFAULT 0,
    version BIGINT NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS usage_records (
    id VARCHAR(64) PRIMARY KEY,
    account_id VARCHAR(64) NOT NULL,
    action_kind VARCHAR(32) NOT NULL,
    credits_deducted BIGINT NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    FOREIGN KEY (account_id) REFERENCES accounts(id)
)`,
	`CREATE TABLE IF NOT EXISTS payment_requests (
    id VARCHAR(64) PRIMARY KEY,
    account_id VARCHAR(64) NOT NULL,
    account_name VARCHAR(255) NOT NULL,
    plan_type VARCHAR(32) NOT NULL,
    amount_usd INT NOT NULL,
    duration_months INT NOT NULL,
    method VARCHAR(32) NOT NULL,
    sender_name VARCHAR(255) NOT NULL DEFAULT '',
    sender_account VARCHAR(255) NOT NULL DEFAULT '',
    sender_bank VARCHAR(255) NOT NULL DEFAULT '',
    transaction_id VARCHAR(255) NOT NULL DEFAULT '',
    status VARCHAR(16) NOT NULL,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    FOREIGN KEY (account_id) REFERENCES accounts(id)
)`,
	`CREATE TABLE IF NOT EXISTS complaints (
    id VARCHAR(64) PRIMARY KEY,
    account_id VARCHAR(64) NOT NULL,
    account_name VARCHAR(255) NOT NULL,
    account_email VARCHAR(255) NOT NULL,
    account_plan VARCHAR(32) NOT NULL,
    kind VARCHAR(16) NOT NULL,
    message TEXT NOT NULL,
    admin_reply TEXT NULL,
    status VARCHAR(16) NOT NULL,
    created_at DATETIME NOT NULL,
    FOREIGN KEY (account_id) REFERENCES accounts(id)
)`,
	`CREATE TABLE IF NOT EXISTS saved_files (
    id VARCHAR(64) PRIMARY KEY,
    account_id VARCHAR(64) NOT NULL,
    kind VARCHAR(16) NOT NULL,
    name VARCHAR(255) NOT NULL,
    url TEXT NOT NULL,
    storage_key VARCHAR(512) NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    FOREIGN KEY (account_id) REFERENCES accounts(id)
)`,
}

var indexes = []string{
	`CREATE INDEX idx_usage_account_kind ON usage_records (account_id, action_kind)`,
	`CREATE INDEX idx_payment_account ON payment_requests (account_id)`,
	`CREATE INDEX idx_complaint_account ON complaints (account_id)`,
	`CREATE INDEX idx_saved_file_account ON saved_files (account_id)`,
}
