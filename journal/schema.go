package journal

// Amounts are stored as decimal TEXT so the full uint64 range survives;
// SQLite integers are signed 64-bit.
const Schema = `
CREATE TABLE IF NOT EXISTS operations (
	op_id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	kind TEXT NOT NULL,
	account TEXT NOT NULL,
	requested TEXT NOT NULL,
	amount TEXT NOT NULL,
	shares TEXT NOT NULL,
	total_shares TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_operations_time ON operations(time);
CREATE INDEX IF NOT EXISTS idx_operations_account ON operations(account);
`
