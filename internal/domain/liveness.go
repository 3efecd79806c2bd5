package domain

// LivenessStatus is derived per check from the current user and client records.
type LivenessStatus struct {
	SubjectExists  bool
	SubjectBlocked bool
	ClientExists   bool
	ClientBlocked  bool
}

// Live reports whether both records exist and neither is blocked.
func (s LivenessStatus) Live() bool {
	return s.SubjectExists && !s.SubjectBlocked && s.ClientExists && !s.ClientBlocked
}

// Blocked reports whether the user or the client record is blocked.
func (s LivenessStatus) Blocked() bool {
	return s.SubjectBlocked || s.ClientBlocked
}
