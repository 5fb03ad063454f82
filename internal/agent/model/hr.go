package model

// PersonProfile mirrors a directory entry.
type PersonProfile struct {
	EmployeeID       string  `json:"employee_id"`
	Name             string  `json:"name"`
	Email            string  `json:"email"`
	EmploymentType   string  `json:"employment_type"`
	Location         string  `json:"location"`
	Department       string  `json:"department"`
	Grade            string  `json:"grade"`
	LeavePolicyGroup string  `json:"leave_policy_group"`
	ManagerID        *string `json:"manager_id"`
}

type DirectoryResponse struct {
	EmployeeProfile    PersonProfile  `json:"employee_profile"`
	ManagerProfile     *PersonProfile `json:"manager_profile"`
	SkipManagerProfile *PersonProfile `json:"skip_manager_profile"`
	HRBPProfile        *PersonProfile `json:"hrbp_profile"`
}

const (
	LeaveTypeAnnual = "ANNUAL"
	LeaveTypeSick   = "SICK"
)

type LeaveBalance struct {
	EmployeeID     string  `json:"employee_id"`
	LeaveType      string  `json:"leave_type"`
	AvailableUnits float64 `json:"available_units"`
}

type LeaveBalances struct {
	EmployeeID string         `json:"employee_id"`
	Balances   []LeaveBalance `json:"balances"`
}

// CaseStatus is the lifecycle state of an HR case.
type CaseStatus string

const (
	CaseDraft           CaseStatus = "DRAFT"
	CasePendingApproval CaseStatus = "PENDING_APPROVAL"
	CaseApproved        CaseStatus = "APPROVED"
	CaseRejected        CaseStatus = "REJECTED"
)

// Valid reports whether s is one of the allowed statuses.
func (s CaseStatus) Valid() bool {
	switch s {
	case CaseDraft, CasePendingApproval, CaseApproved, CaseRejected:
		return true
	}
	return false
}

const (
	CaseTypeLeaveRequest   = "LEAVE_REQUEST"
	CaseTypeGeneralRequest = "GENERAL_REQUEST"
)

type Case struct {
	CaseID      string         `json:"case_id"`
	RequesterID string         `json:"requester_id"`
	CaseType    string         `json:"case_type"`
	Status      CaseStatus     `json:"status"`
	PayloadJSON map[string]any `json:"payload_json"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
}

type CaseCreateRequest struct {
	RequesterID string         `json:"requester_id" validate:"required"`
	CaseType    string         `json:"case_type" validate:"required"`
	PayloadJSON map[string]any `json:"payload_json"`
}

// CasePatchRequest leaves nil fields untouched.
type CasePatchRequest struct {
	Status      *CaseStatus    `json:"status,omitempty"`
	PayloadJSON map[string]any `json:"payload_json,omitempty"`
}

// PolicyChunk is one ranked slice of a policy document.
type PolicyChunk struct {
	ChunkID    int64   `json:"chunk_id"`
	DocName    string  `json:"doc_name"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

type PolicyRetrieveRequest struct {
	PolicyGroup string `json:"policy_group" validate:"required"`
	Query       string `json:"query" validate:"required"`
	TopK        int    `json:"top_k"`
}

type PolicyRetrieval struct {
	PolicyGroup string        `json:"policy_group"`
	Query       string        `json:"query"`
	TopK        int           `json:"top_k"`
	Chunks      []PolicyChunk `json:"chunks"`
}

type PolicyIngestRequest struct {
	PolicyGroup string `json:"policy_group" validate:"required"`
	DocPath     string `json:"doc_path,omitempty"`
}

type PolicyIngestResult struct {
	PolicyGroup string `json:"policy_group"`
	DocName     string `json:"doc_name"`
	Chunks      int    `json:"chunks"`
}
