package matching

// Candidate is the read projection of a registration used for matching.
type Candidate struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Phone         string `json:"phone,omitempty"`
	City          string `json:"city,omitempty"`
	Email         string `json:"email,omitempty"`
	RecruiterCode string `json:"recruiter_code,omitempty"`
}

// Index maps candidates by ID.
func Index(candidates []Candidate) map[string]Candidate {
	out := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		out[c.ID] = c
	}
	return out
}
