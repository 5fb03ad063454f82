package store

const (
	createEmployeesTable = `
CREATE TABLE IF NOT EXISTS employees (
	employee_id        TEXT PRIMARY KEY,
	name               TEXT NOT NULL,
	email              TEXT NOT NULL UNIQUE,
	employment_type    TEXT NOT NULL,
	location           TEXT NOT NULL,
	department         TEXT NOT NULL,
	grade              TEXT NOT NULL,
	leave_policy_group TEXT NOT NULL,
	manager_id         TEXT REFERENCES employees(employee_id) ON DELETE SET NULL
)`

	createLeaveBalancesTable = `
CREATE TABLE IF NOT EXISTS leave_balances (
	employee_id     TEXT NOT NULL REFERENCES employees(employee_id) ON DELETE CASCADE,
	leave_type      TEXT NOT NULL,
	available_units REAL NOT NULL DEFAULT 0,
	last_updated_at TEXT NOT NULL,
	PRIMARY KEY (employee_id, leave_type)
)`

	createCasesTable = `
CREATE TABLE IF NOT EXISTS cases (
	case_id      TEXT PRIMARY KEY,
	requester_id TEXT NOT NULL REFERENCES employees(employee_id) ON DELETE RESTRICT,
	case_type    TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'DRAFT',
	payload_json TEXT NOT NULL DEFAULT '{}',
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
)`

	// embedding holds a JSON array of float32 values.
	createPolicyChunksTable = `
CREATE TABLE IF NOT EXISTS policy_chunks (
	chunk_id     INTEGER PRIMARY KEY AUTOINCREMENT,
	policy_group TEXT NOT NULL,
	doc_name     TEXT NOT NULL,
	chunk_index  INTEGER NOT NULL,
	content      TEXT NOT NULL,
	embedding    TEXT NOT NULL,
	created_at   TEXT NOT NULL
)`

	createCasesRequesterIndex = `
CREATE INDEX IF NOT EXISTS idx_cases_requester ON cases(requester_id, created_at DESC)`

	createChunksGroupIndex = `
CREATE INDEX IF NOT EXISTS idx_policy_chunks_policy_group ON policy_chunks(policy_group)`
)

func schemaStatements() []string {
	return []string{
		createEmployeesTable,
		createLeaveBalancesTable,
		createCasesTable,
		createPolicyChunksTable,
		createCasesRequesterIndex,
		createChunksGroupIndex,
	}
}
