package store

const employeeColumns = `employee_id, name, email, employment_type, location, department, grade, leave_policy_group, manager_id`

const (
	queryEmployeeByID    = `SELECT ` + employeeColumns + ` FROM employees WHERE employee_id = ?`
	queryEmployeeByEmail = `SELECT ` + employeeColumns + ` FROM employees WHERE email = ?`

	// LIKE is case-insensitive for ASCII in SQLite.
	queryHRBPByLocation = `
SELECT ` + employeeColumns + ` FROM employees
WHERE location = ?
  AND (grade LIKE '%BP%' OR department LIKE '%HR%' OR department LIKE '%People%')
ORDER BY rowid
LIMIT 1`

	queryCountEmployees = `SELECT COUNT(*) FROM employees`
	queryCountBalances  = `SELECT COUNT(*) FROM leave_balances`

	queryInsertEmployee = `
INSERT INTO employees (` + employeeColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryBalancesByEmployee = `
SELECT employee_id, leave_type, available_units FROM leave_balances
WHERE employee_id = ?
ORDER BY leave_type`

	queryBalance = `
SELECT employee_id, leave_type, available_units FROM leave_balances
WHERE employee_id = ? AND leave_type = ?`

	queryUpsertBalance = `
INSERT INTO leave_balances (employee_id, leave_type, available_units, last_updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (employee_id, leave_type)
DO UPDATE SET available_units = excluded.available_units, last_updated_at = excluded.last_updated_at`
)

const caseColumns = `case_id, requester_id, case_type, status, payload_json, created_at, updated_at`

const (
	queryInsertCase = `INSERT INTO cases (` + caseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	queryCaseByID   = `SELECT ` + caseColumns + ` FROM cases WHERE case_id = ?`

	queryCasesByRequester = `
SELECT ` + caseColumns + ` FROM cases
WHERE requester_id = ?
ORDER BY created_at DESC, rowid DESC`

	queryUpdateCase = `
UPDATE cases SET status = ?, payload_json = ?, updated_at = ?
WHERE case_id = ?`
)

const (
	queryDeleteChunks = `DELETE FROM policy_chunks WHERE policy_group = ? AND doc_name = ?`

	queryInsertChunk = `
INSERT INTO policy_chunks (policy_group, doc_name, chunk_index, content, embedding, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

	queryChunksByGroup = `
SELECT chunk_id, doc_name, chunk_index, content, embedding FROM policy_chunks
WHERE policy_group = ?
ORDER BY chunk_id`
)
