package domain

// Stakeholder is a party involved in a workflow stage.
type Stakeholder string

const (
	StakeholderClient     Stakeholder = "Client"
	StakeholderContractor Stakeholder = "Contractor"
	StakeholderDesigner   Stakeholder = "Designer"
	StakeholderSupplier   Stakeholder = "Supplier"
	StakeholderArchitect  Stakeholder = "Architect"
	StakeholderEngineer   Stakeholder = "Engineer"
	StakeholderStatutory  Stakeholder = "County/NCA"
)

// ProjectStatus is the lifecycle status of the active project.
type ProjectStatus string

const (
	StatusPlanning   ProjectStatus = "Planning"
	StatusInProgress ProjectStatus = "In Progress"
	StatusOnHold     ProjectStatus = "On Hold"
	StatusCompleted  ProjectStatus = "Completed"
)

// UserRole distinguishes the two viewer roles.
type UserRole string

const (
	RoleClient   UserRole = "CLIENT"
	RoleDesigner UserRole = "DESIGNER"
)

// SubscriptionTier gates paid features.
type SubscriptionTier string

const (
	TierFree   SubscriptionTier = "FREE"
	TierPro    SubscriptionTier = "PRO"
	TierStudio SubscriptionTier = "STUDIO"
)

type CompanySubscription struct {
	Tier        SubscriptionTier `json:"tier" enum:"FREE,PRO,STUDIO"`
	ExpiresAt   string           `json:"expires_at" format:"date-time"`
	IsAutoRenew bool             `json:"is_auto_renew"`
}

type User struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  UserRole `json:"role" enum:"CLIENT,DESIGNER"`
}

type ProjectDetails struct {
	Name     string        `json:"name"`
	Client   string        `json:"client"`
	Location string        `json:"location"`
	Status   ProjectStatus `json:"status" enum:"Planning,In Progress,On Hold,Completed"`
}

type ProjectPhoto struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Tag         string `json:"tag"`
}

type Supplier struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Contact  string   `json:"contact"`
	Products []string `json:"products"`
	Rating   int      `json:"rating" minimum:"1" maximum:"5"`
	Location string   `json:"location"`
}

type Deliverable struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Insight is a market-specific tip attached to a stage.
type Insight struct {
	Title string `json:"title"`
	Tip   string `json:"tip"`
}

// WorkflowStage is one catalog entry. The catalog slice order defines both
// display order and "stage N of M" numbering.
type WorkflowStage struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Icon         string        `json:"icon"`
	Description  string        `json:"description"`
	Stakeholders []Stakeholder `json:"stakeholders"`
	Deliverables []Deliverable `json:"deliverables"`
	Insights     []Insight     `json:"insights"`
	Tasks        []string      `json:"tasks"`
}

// ProjectArchive is an immutable snapshot of a project. Archives are
// independent copies; mutating the live project never touches them.
type ProjectArchive struct {
	ID              string         `json:"id"`
	Details         ProjectDetails `json:"details"`
	CompletedStages []string       `json:"completed_stages"`
	Photos          []ProjectPhoto `json:"photos"`
	Suppliers       []Supplier     `json:"suppliers"`
	ArchivedDate    string         `json:"archived_date" format:"date-time"`
}

// MaterialItem is a row of the materials & finishes price guide.
type MaterialItem struct {
	Name        string `json:"name"`
	Unit        string `json:"unit"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Application string `json:"application"`
}

// Session is a logged-in user bound to a revocable token id.
type Session struct {
	TokenID   string `json:"token_id"`
	User      User   `json:"user"`
	CreatedAt string `json:"created_at" format:"date-time"`
	ExpiresAt string `json:"expires_at" format:"date-time"`
}

// Event is one audit log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
