package domain

import (
	"fmt"
	"slices"
)

// Industries lists the selectable industries in display order.
var Industries = []string{"Technology", "Finance", "Healthcare", "Professional Services", "Other"}

// CompanySizes lists the selectable company sizes in display order.
var CompanySizes = []string{"Small (1-50)", "Medium (51-500)", "Large (501-5000)", "Enterprise (5000+)"}

// ManagerLevels lists the selectable manager levels in display order.
var ManagerLevels = []string{"New Manager", "Experienced Middle Manager", "Senior Manager"}

// ManagerProfile is the sidebar selection describing the coached manager.
// It parameterizes coaching prompts and is never stored in a transcript.
type ManagerProfile struct {
	Industry     string `json:"industry"`
	CompanySize  string `json:"company_size"`
	ManagerLevel string `json:"manager_level"`
}

// DefaultProfile returns the first option of every selector.
func DefaultProfile() ManagerProfile {
	return ManagerProfile{
		Industry:     Industries[0],
		CompanySize:  CompanySizes[0],
		ManagerLevel: ManagerLevels[0],
	}
}

// Normalize fills empty fields with their defaults and rejects values that
// are not one of the known options.
func (p ManagerProfile) Normalize() (ManagerProfile, error) {
	def := DefaultProfile()
	if p.Industry == "" {
		p.Industry = def.Industry
	}
	if p.CompanySize == "" {
		p.CompanySize = def.CompanySize
	}
	if p.ManagerLevel == "" {
		p.ManagerLevel = def.ManagerLevel
	}

	if !slices.Contains(Industries, p.Industry) {
		return ManagerProfile{}, fmt.Errorf("%w: unknown industry %q", ErrInvalidProfile, p.Industry)
	}
	if !slices.Contains(CompanySizes, p.CompanySize) {
		return ManagerProfile{}, fmt.Errorf("%w: unknown company size %q", ErrInvalidProfile, p.CompanySize)
	}
	if !slices.Contains(ManagerLevels, p.ManagerLevel) {
		return ManagerProfile{}, fmt.Errorf("%w: unknown manager level %q", ErrInvalidProfile, p.ManagerLevel)
	}
	return p, nil
}
