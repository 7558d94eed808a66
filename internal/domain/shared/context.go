package shared

import "github.com/google/uuid"

// Capability names a coarse-grained permission held by an acting user.
type Capability string

const (
	CapabilitySuperAdmin   Capability = "super_admin"
	CapabilityCompanyOwner Capability = "company_owner"
	CapabilityTransfer     Capability = "transfer"
)

// ActingContext identifies who is performing an operation and for which
// company. It replaces the ambient authentication facade of the legacy
// system: every core operation receives it explicitly.
type ActingContext struct {
	UserID       uuid.UUID
	CompanyID    uuid.UUID
	Capabilities []Capability
}

// NewActingContext creates an acting context for a user within a company
func NewActingContext(userID, companyID uuid.UUID, capabilities ...Capability) ActingContext {
	return ActingContext{
		UserID:       userID,
		CompanyID:    companyID,
		Capabilities: capabilities,
	}
}

// HasCapability returns true if the context holds the given capability
func (c ActingContext) HasCapability(capability Capability) bool {
	for _, held := range c.Capabilities {
		if held == capability {
			return true
		}
	}
	return false
}

// HasAnyCapability returns true if the context holds at least one of the given capabilities
func (c ActingContext) HasAnyCapability(capabilities ...Capability) bool {
	for _, capability := range capabilities {
		if c.HasCapability(capability) {
			return true
		}
	}
	return false
}

// IsValid returns true if both user and company are set
func (c ActingContext) IsValid() bool {
	return c.UserID != uuid.Nil && c.CompanyID != uuid.Nil
}
